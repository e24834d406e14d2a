package action

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/OpenTouch/night-watch/internal/nwerrors"
)

// EmailDescriptor lists the Email action's parameters, grounded on
// original_source's Email.py.
var EmailDescriptor = Descriptor{
	Mandatory: []string{"email_from_addr", "email_to_addrs"},
	Optional: []string{
		"smtp_srv_url", "smtp_srv_port", "smtp_srv_login", "smtp_srv_password",
		"email_cc_addrs", "email_subject", "email_header", "services_monitored",
		"email_content_success", "email_content_failed", "email_signature",
	},
}

// EmailAction sends a plaintext notification email describing a task's
// transition. PLAIN login is used only when both smtp_srv_login and
// smtp_srv_password are configured. net/smtp is used
// directly (stdlib) because no example repo in the pack carries a
// higher-level mail client library.
type EmailAction struct {
	from, password, login string
	to, cc                []string
	addr                  string
	subject, header       string
	servicesMonitored     string
	contentSuccess        string
	contentFailed         string
	signature             string
}

func NewEmailAction(cfg map[string]any) (Runner, error) {
	from, _ := cfg["email_from_addr"].(string)
	if from == "" {
		return nil, fmt.Errorf("email_from_addr must be a non-empty string")
	}
	to := stringList(cfg["email_to_addrs"])
	if len(to) == 0 {
		return nil, fmt.Errorf("email_to_addrs must list at least one address")
	}

	host, _ := cfg["smtp_srv_url"].(string)
	if host == "" {
		host = "localhost"
	}
	port, _ := cfg["smtp_srv_port"].(string)
	if port == "" {
		port = "25"
	}

	login, _ := cfg["smtp_srv_login"].(string)
	password, _ := cfg["smtp_srv_password"].(string)
	subject, _ := cfg["email_subject"].(string)
	header, _ := cfg["email_header"].(string)
	servicesMonitored, _ := cfg["services_monitored"].(string)
	contentSuccess, _ := cfg["email_content_success"].(string)
	contentFailed, _ := cfg["email_content_failed"].(string)
	signature, _ := cfg["email_signature"].(string)

	return &EmailAction{
		from: from, to: to, cc: stringList(cfg["email_cc_addrs"]),
		addr: host + ":" + port, login: login, password: password,
		subject: subject, header: header, servicesMonitored: servicesMonitored,
		contentSuccess: contentSuccess, contentFailed: contentFailed, signature: signature,
	}, nil
}

func (e *EmailAction) Type() string { return "Email" }

func (e *EmailAction) Run(ctx context.Context, tc Context) error {
	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", e.from)
	fmt.Fprintf(&body, "To: %s\r\n", strings.Join(e.to, ", "))
	if len(e.cc) > 0 {
		fmt.Fprintf(&body, "Cc: %s\r\n", strings.Join(e.cc, ", "))
	}
	fmt.Fprintf(&body, "Subject: %s\r\n\r\n", e.subject)

	fmt.Fprintf(&body, "Hello,\n\n%s.\n\n", e.header)
	if tc.Success {
		fmt.Fprintf(&body, "%s %s.\n\n", e.contentSuccess, e.servicesMonitored)
	} else {
		fmt.Fprintf(&body, "%s %s.\n\n", e.contentFailed, e.servicesMonitored)
	}
	for _, p := range tc.Providers {
		fmt.Fprintf(&body, "The condition is: %s %v %v.\n", p.Name, p.Condition, p.Threshold)
		fmt.Fprintf(&body, "The result of the monitor request is: %v.\n\n", p.Value)
	}
	body.WriteString(e.signature)

	var auth smtp.Auth
	if e.login != "" && e.password != "" {
		auth = smtp.PlainAuth("", e.login, e.password, strings.SplitN(e.addr, ":", 2)[0])
	}

	recipients := append(append([]string{}, e.to...), e.cc...)
	if err := smtp.SendMail(e.addr, auth, e.from, recipients, []byte(body.String())); err != nil {
		return nwerrors.Wrap(nwerrors.KindActionRuntimeError, err, "sending email for task %q", tc.TaskName)
	}
	return nil
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
