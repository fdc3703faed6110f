package imports

// KeySnapshot is a point-in-time copy of the natural keys already committed,
// fetched once per analysis run. It is never mutated after capture, so
// classification stays consistent across the whole run even while other
// imports commit concurrently.
type KeySnapshot map[string]struct{}

func (s KeySnapshot) Has(caseNo string) bool {
	_, ok := s[caseNo]
	return ok
}

// Classify assigns the row to one of the four buckets. It is a pure function
// of the natural key, the row's validity and the snapshot.
func Classify(caseNo string, valid bool, snap KeySnapshot) Bucket {
	if snap.Has(caseNo) {
		if valid {
			return BucketUpdateCandidate
		}
		return BucketInvalidDuplicate
	}
	if valid {
		return BucketNewValid
	}
	return BucketInvalidNew
}
