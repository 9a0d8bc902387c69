/*
Package ports defines the driven ports (interfaces) of the lead form.

These interfaces decouple the wizard from its collaborators, so the same
transitions run against an in-memory store in tests and Redis in production,
and submit to a real endpoint or a recording fake.

# Key Interfaces

  - Submitter: delivers the collected answers to the form-processing endpoint.
  - StateStore: persists and loads respondent sessions for multi-user frontends.
  - DistributedLocker: serializes access to one session across replicas.
*/
package ports
