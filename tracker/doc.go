// Package tracker models GPU resource state across pipelines and validates
// that recorded barrier transitions, accesses, aliasing and cross-pipeline
// synchronization are consistent.
//
// Command contexts record Operations through a Tracker. Operations are
// replayed against the shared resource model when their command lists are
// submitted, in GPU timeline order, by an Engine that keeps one OpQueueState
// per pipeline. A queue whose head operation waits on an unsignaled fence
// blocks until another queue signals it.
//
// Detected programming errors are reported once per unique message through
// the Engine's reporter; the model is always updated as if the request had
// succeeded so that one mistake does not cascade into a flood of reports.
package tracker
