package pubsub

import "testing"

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{project: "bv-prod", name: "bookverse-order-events", want: "projects/bv-prod/topics/bookverse-order-events"},
		{project: "bv-prod", name: " projects/other/topics/events ", want: "projects/other/topics/events"},
		{project: "", name: "events", want: ""},
		{project: "bv-prod", name: "  ", want: ""},
	}
	for _, tc := range cases {
		if got := TopicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("TopicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("events") != nil {
		t.Fatal("nil client should not hand out publishers")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
	if err := c.Ping(nil); err == nil {
		t.Fatal("expected ping error on nil client")
	}
}
