package types

// Version is the canonical project version. The CLI, the chunk protocol,
// and the IPC progress stream share this version (lockstep versioning).
const Version = "0.3.0"
