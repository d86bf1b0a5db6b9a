// Package integration contains the store synchronization bounded context.
// It keeps local customers and orders consistent with a remote commerce platform.
//
// Key concepts:
//   - SyncState: per-record sync status, remote identifier and last outcome
//   - SyncStateRepository: port for persisting sync states (the sync state store)
//   - RemoteClient: port wrapping the remote platform's create/update/delete/list API for one store
//   - LeaseManager: port granting exclusive execution per (store, entity type)
//   - SyncSummary / BulkDeleteResult: structured results of bulk jobs
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
