package twiml

import (
	"strings"
	"testing"
)

func TestRenderSayHangup(t *testing.T) {
	resp := (&Response{}).
		Say("Thank you for your time. Goodbye!", "Polly.Aditi", "hi-IN").
		Hangup()

	out, err := resp.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got := string(out)
	if !strings.HasPrefix(got, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>") {
		t.Fatalf("missing xml declaration: %s", got)
	}
	want := `<Response><Say voice="Polly.Aditi" language="hi-IN">Thank you for your time. Goodbye!</Say><Hangup></Hangup></Response>`
	if !strings.Contains(got, want) {
		t.Fatalf("unexpected body:\n%s", got)
	}
}

func TestRenderGatherNestsVerbs(t *testing.T) {
	g := Gather{
		Input:         "speech",
		Language:      "hi-IN",
		SpeechTimeout: "auto",
		Action:        "/twilio/gather?lead_id=L1",
		Method:        "POST",
	}
	g.Say("Aap kuch bol sakte hain?", "Polly.Aditi", "hi-IN")

	out, err := (&Response{}).Gather(g).Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, `<Gather input="speech" language="hi-IN" speechTimeout="auto" action="/twilio/gather?lead_id=L1" method="POST">`) {
		t.Fatalf("gather attrs missing:\n%s", got)
	}
	if !strings.Contains(got, "<Say voice=\"Polly.Aditi\" language=\"hi-IN\">Aap kuch bol sakte hain?</Say></Gather>") {
		t.Fatalf("nested say missing:\n%s", got)
	}
}

func TestRenderEscapesText(t *testing.T) {
	out, err := (&Response{}).Say("5 < 10 & \"quotes\"", "", "").Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), "5 &lt; 10 &amp;") {
		t.Fatalf("text not escaped: %s", out)
	}
}
