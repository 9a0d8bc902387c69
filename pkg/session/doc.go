/*
Package session implements per-respondent session management for the
multi-user frontends (HTTP, MCP, chat).

Every command is applied as a pure domain transition while holding the
session's lock: a local reference-counted mutex, plus an optional
distributed lock when several replicas share a Redis store. The splash
screen is derived from the stored ReadyAt timestamp, so no timer is kept
per session.
*/
package session
