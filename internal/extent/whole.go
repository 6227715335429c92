package extent

// WholeFileQuerier reports a single allocated, identity-mapped run
// covering the whole file. It is the degenerate extent map for platforms
// and filesystems with no extent query primitive: every byte is read, no
// hole is skipped, and the copy is still correct.
type WholeFileQuerier struct {
	Size        int64
	ClusterSize uint32
}

func (q WholeFileQuerier) Query(startVCN uint64) (Batch, error) {
	need := Clusters(q.Size, q.ClusterSize)
	if startVCN >= need {
		return Batch{}, nil
	}
	return Batch{Mappings: []Mapping{{NextVCN: need, LCN: startVCN}}}, nil
}
