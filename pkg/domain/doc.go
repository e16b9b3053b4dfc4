/*
Package domain contains the core models of the cognito reasoning workflow.

It defines the walk State that flows through the graph, the partial updates (Delta) that
nodes return, and the small closed vocabularies the workflow relies on. This package is
kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - State: the snapshot of one walk (messages, routing, risk, audit fields).
  - Delta: what a node wants changed. Merged field by field by State.Apply.
  - Specialist: the closed set of domain experts a walk can be routed to.
  - PendingApproval: the payload of a walk suspended on a critical action.
  - Decision / Verdict: human approval outcome and critique outcome.
*/
package domain
