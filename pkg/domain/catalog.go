package domain

import "slices"

// Persona is the respondent's self-declared category.
type Persona string

const (
	PersonaCollegien  Persona = "collegien"
	PersonaLyceen     Persona = "lyceen"
	PersonaParent     Persona = "parent"
	PersonaProfesseur Persona = "professeur"
)

// Student reports whether the persona is a pupil (collège or lycée).
func (p Persona) Student() bool {
	return p == PersonaCollegien || p == PersonaLyceen
}

// PersonaOptions are the choices of the typePersonne step, in display order.
var PersonaOptions = []Option{
	{Value: string(PersonaCollegien), Label: "Collégien"},
	{Value: string(PersonaLyceen), Label: "Lycéen"},
	{Value: string(PersonaParent), Label: "Parent"},
	{Value: string(PersonaProfesseur), Label: "Professeur"},
}

// ClassOptions are the grades offered to pupils, in display order.
var ClassOptions = []Option{
	{Value: "6eme", Label: "6ème"},
	{Value: "5eme", Label: "5ème"},
	{Value: "4eme", Label: "4ème"},
	{Value: "3eme", Label: "3ème"},
	{Value: "2nd", Label: "2nd"},
	{Value: "1re", Label: "1ère"},
	{Value: "terminale", Label: "Terminale"},
}

// BaseSteps returns the steps every respondent goes through.
// A fresh slice is returned on each call.
func BaseSteps() []Step {
	return []Step{
		{
			ID:          FieldNom,
			Prompt:      "Quel est votre nom ?",
			Kind:        KindText,
			Placeholder: "Nom",
		},
		{
			ID:          FieldPrenom,
			Prompt:      "Quel est votre prénom ?",
			Kind:        KindText,
			Placeholder: "Prénom",
		},
		{
			ID:          FieldTelephone,
			Prompt:      "Quel est votre numéro de téléphone ?",
			Kind:        KindTel,
			Placeholder: "06 12 34 56 78",
		},
		{
			ID:          FieldEmail,
			Prompt:      "Quelle est votre adresse mail ?",
			Kind:        KindEmail,
			Placeholder: "votre@email.fr",
		},
		{
			ID:      FieldTypePersonne,
			Prompt:  "Vous êtes :",
			Kind:    KindChoice,
			Options: slices.Clone(PersonaOptions),
		},
	}
}

// ClassStep returns the class step shown to the given persona, if any.
func ClassStep(p Persona) (Step, bool) {
	switch {
	case p.Student():
		return Step{
			ID:      FieldClasse,
			Prompt:  "Quelle est votre classe actuelle ?",
			Kind:    KindChoice,
			Options: slices.Clone(ClassOptions),
		}, true
	case p == PersonaParent:
		return Step{
			ID:          FieldClasse,
			Prompt:      "Dans quelle(s) classe(s) se trouve(nt) votre/vos enfant(s) ?",
			Kind:        KindText,
			Placeholder: "Ex: 6ème, 3ème",
		}, true
	default:
		return Step{}, false
	}
}

// Steps derives the full step list from the current answers.
// It is recomputed on every call and never cached.
func Steps(a Answers) []Step {
	steps := BaseSteps()
	if class, ok := ClassStep(Persona(a.Get(FieldTypePersonne))); ok {
		steps = append(steps, class)
	}
	return steps
}

// classShape identifies which variant of the class step a persona gets.
// Two personas with the same shape share a compatible class answer.
func classShape(p Persona) InputKind {
	step, ok := ClassStep(p)
	if !ok {
		return ""
	}
	return step.Kind
}
