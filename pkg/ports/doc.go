/*
Package ports defines the driven ports (interfaces) of the essay engine.

These interfaces decouple the orchestration core from agents, search providers,
storage backends and lock services.

# Key Interfaces

  - Agent: one of the four roles (editor, researcher, writer, critic).
  - Searcher: web search used by the researcher agent.
  - RunStore: persists runs so they can be inspected and resumed.
  - DistributedLocker: serializes writers of the same run across replicas.
*/
package ports
