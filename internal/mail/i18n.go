package mail

import (
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// NewBundle returns the message catalog for outgoing mail. English is the
// fallback for any language without a translation.
func NewBundle() *i18n.Bundle {
	bundle := i18n.NewBundle(language.English)

	bundle.MustAddMessages(language.English,
		&i18n.Message{
			ID:    "reset_password_subject",
			Other: "Reset your Personal Finance Tracker password",
		},
		&i18n.Message{
			ID: "reset_password_body",
			Other: "Hello {{.Name}},\n\n" +
				"We received a request to reset your password. Open the link below to choose a new one:\n\n" +
				"{{.Link}}\n\n" +
				"The link expires in {{.Minutes}} minutes. If you did not ask for a reset you can ignore this mail.",
		},
	)

	bundle.MustAddMessages(language.Hindi,
		&i18n.Message{
			ID:    "reset_password_subject",
			Other: "अपना पर्सनल फाइनेंस ट्रैकर पासवर्ड रीसेट करें",
		},
		&i18n.Message{
			ID: "reset_password_body",
			Other: "नमस्ते {{.Name}},\n\n" +
				"हमें आपका पासवर्ड रीसेट करने का अनुरोध मिला है। नया पासवर्ड चुनने के लिए नीचे दिया गया लिंक खोलें:\n\n" +
				"{{.Link}}\n\n" +
				"यह लिंक {{.Minutes}} मिनट में समाप्त हो जाएगा। यदि आपने यह अनुरोध नहीं किया है तो इस मेल को अनदेखा करें।",
		},
	)

	return bundle
}

type ResetPasswordData struct {
	Name string
	Link string
	TTL  time.Duration

	// Template names a Mailgun stored template. It is filled with the same
	// variables as the localized body, which other transports still send.
	Template string
}

// ResetPasswordEmail renders the password reset mail in the first language of
// langs the bundle knows.
func ResetPasswordEmail(bundle *i18n.Bundle, from, to string, data ResetPasswordData, langs ...string) (*Email, error) {
	localizer := i18n.NewLocalizer(bundle, append(langs, "en")...)

	templateData := map[string]any{
		"Name":    data.Name,
		"Link":    data.Link,
		"Minutes": int(data.TTL.Minutes()),
	}

	subject, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: "reset_password_subject"})
	if err != nil {
		return nil, err
	}
	body, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    "reset_password_body",
		TemplateData: templateData,
	})
	if err != nil {
		return nil, err
	}

	e := &Email{
		Subject: subject,
		Body:    body,
		From:    from,
		To:      []string{to},
	}
	if data.Template != "" {
		e.Template = data.Template
		e.TemplateVars = templateData
	}
	return e, nil
}
