package outbox

import (
	"testing"

	"tyr/domain/book"
)

func openTemp(t *testing.T) *Outbox {
	t.Helper()
	o, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func sampleTrade(i int64) book.Trade {
	return book.Trade{BuyID: uint64(i), SellID: uint64(i + 100), Price: 100 + i, Qty: i, TS: 1000 + i}
}

func TestAppendAndGet(t *testing.T) {
	o := openTemp(t)

	seq, err := o.Append(sampleTrade(1))
	if err != nil {
		t.Fatal(err)
	}
	if seq != 1 {
		t.Errorf("first seq = %d, want 1", seq)
	}

	rec, err := o.Get(seq)
	if err != nil {
		t.Fatal(err)
	}
	if rec.State != StateNew || rec.Trade != sampleTrade(1) {
		t.Errorf("record = %+v", rec)
	}
}

func TestGetMissing(t *testing.T) {
	o := openTemp(t)
	if _, err := o.Get(99); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStateTransitions(t *testing.T) {
	o := openTemp(t)
	seq, _ := o.Append(sampleTrade(1))

	if err := o.MarkSent(seq); err != nil {
		t.Fatal(err)
	}
	rec, _ := o.Get(seq)
	if rec.State != StateSent || rec.Retries != 1 || rec.LastAttempt == 0 {
		t.Errorf("after MarkSent: %+v", rec)
	}

	if err := o.MarkSent(seq); err != nil {
		t.Fatal(err)
	}
	if rec, _ = o.Get(seq); rec.Retries != 2 {
		t.Errorf("retries = %d, want 2", rec.Retries)
	}

	if err := o.MarkAcked(seq); err != nil {
		t.Fatal(err)
	}
	if rec, _ = o.Get(seq); rec.State != StateAcked {
		t.Errorf("state = %v, want ACKED", rec.State)
	}
}

func TestScanPendingSkipsAcked(t *testing.T) {
	o := openTemp(t)
	for i := int64(1); i <= 5; i++ {
		if _, err := o.Append(sampleTrade(i)); err != nil {
			t.Fatal(err)
		}
	}
	_ = o.MarkAcked(2)
	_ = o.MarkAcked(4)

	var seqs []uint64
	err := o.ScanPending(func(r *Record) error {
		seqs = append(seqs, r.Seq)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seqs) != 3 || seqs[0] != 1 || seqs[1] != 3 || seqs[2] != 5 {
		t.Errorf("pending = %v, want [1 3 5]", seqs)
	}
}

func TestTruncateAcked(t *testing.T) {
	o := openTemp(t)
	for i := int64(1); i <= 4; i++ {
		_, _ = o.Append(sampleTrade(i))
	}
	_ = o.MarkAcked(1)
	_ = o.MarkAcked(2)
	_ = o.MarkAcked(4)

	if err := o.TruncateAcked(3); err != nil {
		t.Fatal(err)
	}

	if _, err := o.Get(1); err != ErrNotFound {
		t.Error("seq 1 should be gone")
	}
	if _, err := o.Get(2); err != ErrNotFound {
		t.Error("seq 2 should be gone")
	}
	if _, err := o.Get(3); err != nil {
		t.Error("unacked seq 3 must survive truncation")
	}
	if _, err := o.Get(4); err != nil {
		t.Error("seq 4 is past maxSeq and must survive")
	}
}

func TestSeqRecoveryAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	o, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	for i := int64(1); i <= 3; i++ {
		_, _ = o.Append(sampleTrade(i))
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}

	o2, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer o2.Close()

	seq, err := o2.Append(sampleTrade(4))
	if err != nil {
		t.Fatal(err)
	}
	if seq != 4 {
		t.Errorf("seq after reopen = %d, want 4", seq)
	}
}
