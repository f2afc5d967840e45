/*
Package domain contains the core domain models of the essay writer.

It defines the shared State Record that the four agents read and update, the
partial updates they return, the History of executed roles and the append-only
Execution Ledger. This package is kept pure and free of I/O, following
Hexagonal Architecture principles: the engine, stores and transports live
elsewhere and depend on it.

# Key Entities

  - State: the copy-on-write record shared by editor, researcher, writer and critic.
  - Update: a partial update returned by an agent, restricted per role.
  - History: the ordered list of roles that completed a step.
  - Ledger: the write-once record of every step with input and output snapshots.
  - Run: the persisted aggregate (status, state, history, ledger) of one essay.
*/
package domain
