package notification

import "testing"

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want Email
		ok   bool
	}{
		{
			name: "budget request",
			text: "Jane Doe <jane@x.org> | Subject: Budget | Body Preview: Can you send the Q3 numbers?",
			want: Email{Sender: "Jane Doe <jane@x.org>", Subject: "Budget", BodyPreview: "Can you send the Q3 numbers?"},
			ok:   true,
		},
		{
			name: "entities are kept literally",
			text: "ops@x.org | Subject: Q&amp;A notes | Body Preview: see &lt;here&gt;",
			want: Email{Sender: "ops@x.org", Subject: "Q&amp;A notes", BodyPreview: "see &lt;here&gt;"},
			ok:   true,
		},
		{
			name: "pipe inside subject",
			text: "ops@x.org | Subject: Q3 | Q4 planning | Body Preview: see attached",
			want: Email{Sender: "ops@x.org", Subject: "Q3 | Q4 planning", BodyPreview: "see attached"},
			ok:   true,
		},
		{
			name: "empty body uses placeholder",
			text: "ops@x.org | Subject: Ping | Body Preview:  ",
			want: Email{Sender: "ops@x.org", Subject: "Ping", BodyPreview: EmptyBodyPlaceholder},
			ok:   true,
		},
		{
			name: "only first line is parsed",
			text: "ops@x.org | Subject: Ping | Body Preview: hello\nsecond line | Subject: x | Body Preview: y",
			want: Email{Sender: "ops@x.org", Subject: "Ping", BodyPreview: "hello"},
			ok:   true,
		},
		{name: "missing body marker", text: "ops@x.org | Subject: Ping", ok: false},
		{name: "missing subject marker", text: "ops@x.org | Body Preview: hi", ok: false},
		{name: "markers on second line", text: "hello\nops@x.org | Subject: Ping | Body Preview: hi", ok: false},
		{name: "empty sender", text: "  | Subject: Ping | Body Preview: hi", ok: false},
		{name: "empty subject", text: "ops@x.org | Subject:   | Body Preview: hi", ok: false},
		{name: "plain chatter", text: "lunch anyone?", ok: false},
		{name: "empty", text: "", ok: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Parse(tc.text)
			if ok != tc.ok {
				t.Fatalf("Parse() ok = %v, want %v", ok, tc.ok)
			}
			if got != tc.want {
				t.Fatalf("Parse() = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	t.Parallel()

	texts := []string{
		"Jane Doe <jane@x.org> | Subject: Budget | Body Preview: Can you send the Q3 numbers?",
		"ops@x.org | Subject: Q3 | Q4 planning | Body Preview: see attached",
		"ops@x.org | Subject: a | Subject: b | Body Preview: c",
		"ops@x.org | Subject: Ping | Body Preview: ",
		"ops@x.org | Subject: Q&amp;A notes | Body Preview: see &lt;here&gt;",
	}
	for _, text := range texts {
		first, ok := Parse(text)
		if !ok {
			t.Fatalf("Parse(%q) failed", text)
		}
		second, ok := Parse(Format(first))
		if !ok {
			t.Fatalf("Parse(Format(%#v)) failed", first)
		}
		if first != second {
			t.Fatalf("round trip mismatch: %#v != %#v", first, second)
		}
	}
}

func TestIsNotification(t *testing.T) {
	t.Parallel()
	if !IsNotification("a | Subject: b | Body Preview: c") {
		t.Fatalf("expected notification")
	}
	if IsNotification("<@U123> shorter") {
		t.Fatalf("mention should not be a notification")
	}
}
