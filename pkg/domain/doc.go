/*
Package domain contains the core domain models of the intake flow engine.

It defines the fixed step sequence, the per-session record, the structured
turn result and the lifecycle events. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Step: One position in the fixed flow (start, name, email, phone, service, summary, end).
  - Session: The mutable state of one conversation (step, answers, retries, history).
  - Result: What a single turn returns to the caller.
  - LifecycleHooks: Callbacks fired after each committed turn.
*/
package domain
