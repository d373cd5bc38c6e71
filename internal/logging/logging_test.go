package logging

import "testing"

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		log, err := New(format, "ledger")
		if err != nil {
			t.Fatalf("New(%q): %v", format, err)
		}
		if log == nil {
			t.Fatalf("New(%q): nil logger", format)
		}
		log.Info("logger ready")
	}
}
