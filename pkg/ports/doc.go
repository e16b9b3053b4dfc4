/*
Package ports defines the driven ports (interfaces) of the cognito workflow.

These interfaces decouple the graph executor and its stages from external
implementations, so reasoning back-ends, tools, sinks and stores can be swapped
without touching the core.

# Key Interfaces

  - ReasoningOracle: the language model (or a deterministic stand-in) behind every stage.
  - ToolInvoker: runs named tools for specialists and speculative tasks.
  - Signer: produces the signature carried by the trust receipt.
  - AuditSink, KnowledgeSink, TrainingSink: best-effort write-only sinks.
  - ReputationStore: process-wide specialist scores with atomic updates.
  - StateStore / DistributedLocker: persistence of suspended walks.
*/
package ports
