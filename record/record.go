package record

import (
	"encoding/binary"
	"net"
)

// Record is a single piece of evidence that Name is served from IP.
type Record struct {
	IP     string `json:"ip"`
	Name   string `json:"name"`
	Source string `json:"src"`
}

// Records sorts by IPv4 address. Anything that is not an IPv4 address
// is placed first in no particular order.
type Records []Record

func (r Records) Len() int      { return len(r) }
func (r Records) Swap(i, j int) { r[i], r[j] = r[j], r[i] }

func (r Records) Less(i, j int) bool {
	return lessIP(r[i].IP, r[j].IP)
}

func lessIP(a, b string) bool {
	first := net.ParseIP(a).To4()
	second := net.ParseIP(b).To4()
	if first == nil {
		return second != nil
	}
	if second == nil {
		return false
	}
	return binary.BigEndian.Uint32(first) < binary.BigEndian.Uint32(second)
}

// Dedupe returns records without exact duplicates, keeping first occurrences.
func Dedupe(records []Record) []Record {
	seen := make(map[Record]struct{}, len(records))
	res := make([]Record, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec]; ok {
			continue
		}
		seen[rec] = struct{}{}
		res = append(res, rec)
	}
	return res
}
