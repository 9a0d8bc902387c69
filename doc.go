/*
Package leadform collects contact leads through a short step-by-step form.

A respondent lands on a splash screen, answers one question per screen
(nom, prénom, téléphone, e-mail, profil, classe), reviews a recap where every
answer can be edited, and submits. The answers are sent in a single POST to a
configured form endpoint together with the acquisition source read from the
landing URL.

# Layout

  - pkg/domain holds the pure form model: steps, answers, transitions and the recap.
  - pkg/wizard drives a single respondent with timers (splash, auto-advance) and
    applies commands to stored sessions for multi-respondent frontends.
  - pkg/session serialises concurrent commands on a session and persists it
    through a ports.StateStore (memory or Redis).
  - pkg/adapters expose the form over HTTP, MCP and Telegram and submit it
    with formpost.
  - cmd/leadform is the command line entry point (terminal form, HTTP server,
    MCP server, Telegram bot).

# Usage

	ctrl := wizard.New(
		wizard.WithSubmitter(formpost.New("https://forms.example.com/lead")),
	)
	defer ctrl.Close()
	ctrl.Mount(ctx, url.Values{"utm_source": {"instagram"}})
*/
package leadform
