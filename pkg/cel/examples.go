package cel

// RuleExamples are starting points for spam.rules entries.
var RuleExamples = map[string]string{
	"domain_blocklist":   `email_domain in ["mailinator.com", "yopmail.com"]`,
	"domain_suffix":      `email_domain.endsWith(".ru")`,
	"subject_keyword":    `subject.lowerAscii().contains("guest post")`,
	"message_regex":      `message.matches("(?i)\\bwhatsapp\\s*\\+?[0-9]{6,}")`,
	"name_is_url":        `name.contains("http")`,
	"name_equals_email":  `name == email`,
	"short_with_link":    `size(message) < 40 && message.contains("http")`,
	"combined_condition": `email_domain.endsWith(".xyz") && message.lowerAscii().contains("offer")`,
}
