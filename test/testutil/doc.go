// Package testutil provides test utilities and fake implementations for offlineq testing.
//
// # Fakes
//
//   - [FakeTransport]: Scripted types.Transport that records every request
//   - [CountingStore]: types.Store wrapper counting calls, with hooks
//   - [RecordingNotifier]: types.Notifier that keeps every event
//   - [TestMetricsCollector]: types.MetricsCollector that keeps every observation
//
// # Usage
//
//	tr := testutil.NewFakeTransport().
//		Script("/api/tickets/1", testutil.NetworkDown(), testutil.OK())
//	st := testutil.NewCountingStore(store.NewMemory())
//	q, _ := offlineq.New(st, tr)
//
// # Integration Test Helpers
//
//   - StartEmbeddedNATS: Starts an embedded NATS server with JetStream for
//     the NATS store, watcher and notifier tests
package testutil
