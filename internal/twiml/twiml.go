// Package twiml builds the small subset of TwiML this service speaks:
// Say, Gather (speech input) and Hangup. Twilio expects the rendered
// document with Content-Type text/xml.
package twiml

import "encoding/xml"

// Response is the root <Response> element. Verbs render in append order.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []interface{}
}

// Say outputs text-to-speech.
type Say struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

// Gather opens a speech-capture window. Nested verbs play while Twilio
// waits for input.
type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr,omitempty"`
	Language      string   `xml:"language,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	Action        string   `xml:"action,attr,omitempty"`
	Method        string   `xml:"method,attr,omitempty"`
	Verbs         []interface{}
}

// Hangup ends the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Say appends a <Say> verb.
func (r *Response) Say(text, voice, language string) *Response {
	r.Verbs = append(r.Verbs, Say{Text: text, Voice: voice, Language: language})
	return r
}

// Gather appends a <Gather> verb and returns it so callers can nest verbs.
func (r *Response) Gather(g Gather) *Response {
	r.Verbs = append(r.Verbs, g)
	return r
}

// Hangup appends a <Hangup> verb.
func (r *Response) Hangup() *Response {
	r.Verbs = append(r.Verbs, Hangup{})
	return r
}

// Say appends a nested <Say> inside the gather window.
func (g *Gather) Say(text, voice, language string) *Gather {
	g.Verbs = append(g.Verbs, Say{Text: text, Voice: voice, Language: language})
	return g
}

// Render serializes the response with the XML declaration Twilio expects.
func (r *Response) Render() ([]byte, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
