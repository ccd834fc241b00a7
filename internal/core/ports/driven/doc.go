// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - LinkBackend: The backend-of-record for linked accounts
//   - TabOpener: Opens authorization tabs in the user's browser
//   - MessageBus: Delivers messages posted by spawned tabs
//   - Location: The address of the page that started a flow
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - FlowJournal: Settled flow history. Without it, history is empty.
//   - SchedulerStore: Background task state. Without it, the scheduler does not run.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
