/*
Package runner drives the lead form from a line-oriented terminal or pipe.

The Runner mounts a wizard.Controller, renders every screen through an
IOHandler and turns each input line into a wizard command. Two handlers are
provided: TextHandler for people and JSONHandler for scripts, which emits one
wizard.View per line.

# Commands

  - A line of text answers the displayed step and moves on; an empty line moves on
    when the step is already answered.
  - On a choice step, the option number (or its value) selects it.
  - On the recap, a step number opens that step again and ":envoyer" submits.
  - ":retour" goes back one step and ":quit" leaves without submitting.

# Usage

	r := runner.NewRunner(
		runner.WithQuery(url.Values{"source": {"salon"}}),
		runner.WithControllerOptions(wizard.WithSubmitter(formpost.New(endpoint))),
	)
	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
