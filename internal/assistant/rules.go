package assistant

import "strings"

type rule struct {
	keywords []string
	value    string
}

var chatRules = []rule{
	{[]string{"project"}, "I'd be happy to tell you about my projects! I have several interesting projects in data science, machine learning, and web development. You can check out my portfolio for more details."},
	{[]string{"experience", "work"}, "I have experience in software development, data analysis, and machine learning. I've worked on various projects involving Python, React, and cloud technologies."},
	{[]string{"certificate", "certification"}, "I hold several certifications in data science, machine learning, and software development. These include certifications from Google, AWS, and various online learning platforms."},
	{[]string{"contact", "email"}, "You can reach out to me through the contact form on my website, or find my contact information in the portfolio."},
}

const defaultReply = "Hello! I'm here to help you learn more about my portfolio, projects, experience, and skills. Feel free to ask me anything specific!"

var typeRules = []rule{
	{[]string{"what", "how", "tell me", "explain"}, string(TypeQuestion)},
	{[]string{"do", "create", "build", "make"}, string(TypeCommand)},
	{[]string{"find", "search", "look for"}, string(TypeSearch)},
}

var intentRules = []rule{
	{[]string{"project"}, "project_inquiry"},
	{[]string{"experience", "work"}, "experience_inquiry"},
	{[]string{"certificate"}, "certificate_inquiry"},
	{[]string{"skill"}, "skill_inquiry"},
	{[]string{"contact"}, "contact_inquiry"},
}

const defaultIntent = "general_inquiry"

var technologies = []string{"python", "react", "javascript", "machine learning", "data science"}

// match returns the value of the first rule with a keyword contained in msg.
// Matching is by lowercase substring, so "do" also matches "document".
func match(rules []rule, msg, fallback string) string {
	lower := strings.ToLower(msg)
	for _, r := range rules {
		if containsAny(lower, r.keywords...) {
			return r.value
		}
	}
	return fallback
}

func chatReply(msg string) string {
	return match(chatRules, msg, defaultReply)
}

func messageType(msg string) MessageType {
	return MessageType(match(typeRules, msg, string(TypeConversation)))
}

func intent(msg string) string {
	return match(intentRules, msg, defaultIntent)
}

func entities(msg string) map[string]any {
	out := map[string]any{}
	lower := strings.ToLower(msg)

	var mentioned []string
	for _, tech := range technologies {
		if strings.Contains(lower, tech) {
			mentioned = append(mentioned, tech)
		}
	}
	if len(mentioned) > 0 {
		out["technologies"] = mentioned
	}
	return out
}
