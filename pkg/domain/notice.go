package domain

// NoticeKind distinguishes the two blocking notices shown after submission.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeFailure NoticeKind = "failure"
)

// Notice is a user-facing message.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

var (
	SuccessNotice = Notice{Kind: NoticeSuccess, Message: "Merci ! Votre formulaire a été envoyé avec succès."}
	FailureNotice = Notice{Kind: NoticeFailure, Message: "Une erreur est survenue lors de l'envoi."}
)

// NoticeFor maps a submission outcome to the notice shown to the respondent.
func NoticeFor(sub Submission) Notice {
	if sub.Outcome == OutcomeAccepted {
		return SuccessNotice
	}
	return FailureNotice
}
