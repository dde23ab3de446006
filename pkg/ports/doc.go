/*
Package ports defines the driven and driving ports of the intake flow engine.

These interfaces decouple the engine from storage backends and transports.

# Key Interfaces

  - SessionStore: persists and loads flow Sessions (memory, file, Redis, SQL).
  - DistributedLocker: serializes access to one session across replicas.
  - FlowEngine: what the HTTP, MCP and CLI adapters drive.
*/
package ports
