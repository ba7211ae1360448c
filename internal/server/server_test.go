package server

import "testing"

func TestDecompileJobMalformedInput(t *testing.T) {
	s := New(":0")
	job := s.decompileJob([]byte("not a rite file"))
	if job.Error == "" {
		t.Fatalf("expected an error for malformed input, got job %+v", job)
	}
	if job.ID == "" {
		t.Fatalf("expected a request ID to be assigned even on failure")
	}
}

func TestNewServerTracksNoClientsInitially(t *testing.T) {
	s := New(":0")
	if len(s.clients) != 0 {
		t.Fatalf("expected a freshly constructed server to have no clients")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close on an unstarted server: %v", err)
	}
}
