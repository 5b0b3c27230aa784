// Package mock has test doubles for the image manager. FakeRunner stands in for
// the external tar program - it records each invocation, can be told to fail a
// given invocation with a spawn error or an exit code, and can emulate tar's
// extraction in-process so tests don't depend on the tar binary. MakeTarball
// builds image archives for tests to ingest.
package mock
