/*
Package intake is a guided data-collection flow engine.

It walks an end user through a fixed dialogue (name, email, phone, service,
summary) one turn at a time, validating every answer, tolerating a bounded
number of invalid attempts before starting over, and expiring idle
conversations.

# Concept

Each conversation is a Session, a small state machine persisted through a
ports.SessionStore. A turn is the atomic load, validate, mutate and store of one
session under its lock; flow conditions such as an invalid answer or an expired
session are reported in the returned Result and never as errors. Transports
(HTTP, MCP, the CLI) are thin adapters over the same Engine.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/intake"
	)

	func main() {
		eng, err := intake.New()
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		id, res, err := eng.Start(ctx)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res.Message)

		res, err = eng.ProcessTurn(ctx, id, "Ada Lovelace")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(res.Message)
	}

Sessions live in memory unless a store is injected with WithStore; see
pkg/adapters for file, Redis and SQL implementations and
pkg/persistence/middleware for encryption at rest.
*/
package intake
