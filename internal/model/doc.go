package model

// Package model defines domain data structures used across the service:
// download requests, jobs, the quality ladder, and status enums. Jobs are
// owned by the job service and mutated only under its lock.
