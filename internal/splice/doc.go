// Package splice executes segment plans against a media handle and
// publishes the result.
//
// Execute realizes copy and freeze plans by extracting each op into a clip
// and concatenating the clips in plan order. Iterative plans, and
// ExecuteIterative which drives the offset tracker directly, edit the whole
// media one trim or freeze at a time; every edit yields a new immutable
// Version and the previous intermediate version is deleted.
//
// Any failing op aborts the task. The final artifact is copied into the
// destination directory under a temporary name and renamed into place while
// holding a lock on the destination, so readers never see a partial file.
package splice
