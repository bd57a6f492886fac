package imap

import "hash/fnv"

// uidValidity derives a stable per-address UIDVALIDITY value. It never
// changes for a given address, so clients can safely cache UIDs across
// sessions; there's no mailbox-renumbering event that would require
// bumping it.
func uidValidity(address string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(address))
	return h.Sum32()
}
