package dispatchsvc

import "strings"

// MessageTemplate is the text of the pdf mail. Placeholders: {name}, {pan}, {pan1}.
//
// Body is Greeting, then PrimaryClause when PAN is given, then SecondaryClause (prefixed by
// SecondaryJoin when PAN is given, or SecondaryLead when it is not) when PAN1 is given, then Closing.
type MessageTemplate struct {
	Subject         string `yaml:"subject" validate:"required"`
	Greeting        string `yaml:"greeting" validate:"required"`
	PrimaryClause   string `yaml:"primaryClause"`
	SecondaryJoin   string `yaml:"secondaryJoin"`
	SecondaryLead   string `yaml:"secondaryLead"`
	SecondaryClause string `yaml:"secondaryClause"`
	Closing         string `yaml:"closing"`
}

func DefaultTemplate() MessageTemplate {
	return MessageTemplate{
		Subject:         "PDF Document for {name}",
		Greeting:        "Dear {name},\n\nPlease find attached your PDF document(s)",
		PrimaryClause:   " related to PAN: {pan}",
		SecondaryJoin:   " and ",
		SecondaryLead:   " related to ",
		SecondaryClause: "PAN1: {pan1}",
		Closing:         ".\n\nRegards,\nPDF Email Service",
	}
}

// WithDefaults fill empty Subject and Greeting from DefaultTemplate, other parts are kept even when empty.
func (t MessageTemplate) WithDefaults() MessageTemplate {
	def := DefaultTemplate()
	if t.Subject == "" && t.Greeting == "" {
		return def
	}

	if t.Subject == "" {
		t.Subject = def.Subject
	}

	if t.Greeting == "" {
		t.Greeting = def.Greeting
	}

	return t
}

// Compose returns subject and body for the recipient.
func (t MessageTemplate) Compose(r Recipient) (subject, body string) {
	replacer := strings.NewReplacer(
		"{name}", r.Name,
		"{pan}", r.PAN,
		"{pan1}", r.PAN1,
	)

	sb := &strings.Builder{}
	sb.WriteString(t.Greeting)

	if r.PAN != "" {
		sb.WriteString(t.PrimaryClause)
	}

	if r.PAN1 != "" {
		if r.PAN != "" {
			sb.WriteString(t.SecondaryJoin)
		} else {
			sb.WriteString(t.SecondaryLead)
		}

		sb.WriteString(t.SecondaryClause)
	}

	sb.WriteString(t.Closing)

	return replacer.Replace(t.Subject), replacer.Replace(sb.String())
}
