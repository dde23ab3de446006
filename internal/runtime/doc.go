/*
Package runtime implements the intake flow engine.

A session walks the fixed sequence start, name, email, phone, service,
summary. Each turn runs atomically under the session lock:

 1. Load the session, creating it on first reference.
 2. Expire it lazily if it was idle past the timeout.
 3. Recover inactive sessions (expired, completed, invalid status).
 4. Validate the answer for the pending step; advance or count a retry.
 5. Compose the prompt for the step the session now stands at.

Lifecycle hooks fire after the session is saved, outside the lock.
*/
package runtime
