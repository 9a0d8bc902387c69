/*
Package wizard drives one respondent through the lead form.

A Controller owns the state of a single session and serializes every command
behind a mutex. It arms two kinds of one-shot timers: the splash timer started
by Mount, and the auto-advance timer started by Select. Each timer callback
carries a generation token; a callback whose token is stale (superseded by a
newer command, a new Mount or Close) does nothing.

	c := wizard.New(wizard.WithSubmitter(formpost.New(endpoint)))
	defer c.Close()

	c.Mount(ctx, url.Values{"utm_source": {"insta"}})
	for state := range c.Changes() {
		render(state)
	}

Multi-respondent frontends do not use a Controller. They apply the pure
transitions of package domain through session.Manager and share the
submission logic through Deliverer.
*/
package wizard
