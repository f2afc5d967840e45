/*
Package essay is a deterministic orchestration engine that writes essays with
four cooperating agents: an editor, a researcher, a writer and a critic.

The agents share a single State record. After every step a pure router picks
the next agent from the State and the history of executed roles, and the
engine, never the agents, updates counters, ceilings and completion flags.
Every step is recorded in an append-only ledger, and runs are persisted after
each step so they can be inspected while running and resumed after a crash.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/markgewhite/agentic-essay-writer"
		"github.com/markgewhite/agentic-essay-writer/pkg/agents/stub"
	)

	func main() {
		eng, err := essay.New(stub.Agents())
		if err != nil {
			log.Fatal(err)
		}

		run, err := eng.Write(context.Background(), essay.Request{Topic: "Urban beekeeping"})
		if err != nil {
			log.Fatal(err)
		}

		art, err := eng.Artifact(context.Background(), run.ID)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(art.Complete, art.Completion)
	}

Model-backed agents live in pkg/agents; pkg/llm and pkg/search provide the
completers and the web searcher they need.
*/
package essay
