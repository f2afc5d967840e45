/*
Package session implements run management and persistence orchestration.

A Manager serializes access to a run across goroutines (ref-counted
in-process locks) and, optionally, across replicas (a DistributedLocker).
Drive advances a stored run one step at a time, persisting after every
committed step, so a run interrupted between steps resumes exactly where it
stopped.
*/
package session
