package conversation

import (
	"fmt"
	"strings"
)

const maxReplyLength = 4000

const mainMenu = "──────────────\n" +
	"1️⃣ *View Balance*\n" +
	"2️⃣ *Request Statement*\n" +
	"3️⃣ *Get Gate Pass*\n" +
	"4️⃣ *Get Transport Pass*\n" +
	"──────────────\n" +
	"_Reply 'menu' anytime to see options_"

const unregisteredMenu = "Reply with a number or keyword:\n" +
	"1️⃣ *About Our School*\n" +
	"2️⃣ *Admissions Info*\n" +
	"3️⃣ *Upcoming Events*\n" +
	"4️⃣ *Contact Us*\n" +
	"5️⃣ *Help*"

// cannedQuestions вопросы ассистенту для пунктов меню незарегистрированного номера.
var cannedQuestions = map[string]string{
	"1":                "Tell me about Shining Smiles School.",
	"about":            "Tell me about Shining Smiles School.",
	"about our school": "Tell me about Shining Smiles School.",
	"2":                "Tell me about admissions at Shining Smiles School.",
	"admissions":       "Tell me about admissions at Shining Smiles School.",
	"admissions info":  "Tell me about admissions at Shining Smiles School.",
	"3":                "What are the upcoming events at Shining Smiles School?",
	"events":           "What are the upcoming events at Shining Smiles School?",
	"upcoming events":  "What are the upcoming events at Shining Smiles School?",
	"4":                "How can I contact Shining Smiles School?",
	"contact":          "How can I contact Shining Smiles School?",
	"contact us":       "How can I contact Shining Smiles School?",
}

func withMenu(msg string) string {
	return msg + "\n\n" + mainMenu
}

func (s *Service) unregisteredWelcome() string {
	return "*Welcome to Shining Smiles School!*\n" +
		"I'm your school assistant. I can help with questions about admissions, events, or general inquiries.\n\n" +
		"Ask me anything or reply *menu* for options.\n" +
		fmt.Sprintf("For account-related queries, contact _%s_.", s.opts.SupportContact) +
		"\n\n" + unregisteredMenu
}

func (s *Service) unregisteredHelp() string {
	return fmt.Sprintf("❓ *Help*: Ask me anything about Shining Smiles School or reply *menu* for options. "+
		"For account-related queries, contact _%s_.\n%s", s.opts.SupportContact, unregisteredMenu)
}

func (s *Service) limitReached() string {
	return fmt.Sprintf("You have reached today's limit of %d questions. Please try again tomorrow or contact _%s_.",
		s.opts.DailyLimit, s.opts.SupportContact)
}

func (s *Service) assistantUnavailable() string {
	return fmt.Sprintf("I can't answer that right now. Reply *menu* for options or contact _%s_.", s.opts.SupportContact)
}

func (s *Service) help() string {
	return withMenu(fmt.Sprintf("❓ *Help*: Reply with a number from the menu, or type *statement 2026-1* for a specific term. "+
		"For account issues contact _%s_.", s.opts.SupportContact))
}

func (s *Service) apology() string {
	return withMenu(fmt.Sprintf("⚠️ Sorry, something went wrong while handling your request. "+
		"Please try again or contact _%s_.", s.opts.SupportContact))
}

func askTerm(purpose string) string {
	return fmt.Sprintf("📅 Please reply with a term code (e.g. *2026-1*) to %s, or *menu* to go back.", purpose)
}

func truncate(msg string) string {
	if len(msg) <= maxReplyLength {
		return msg
	}
	cut := msg[:maxReplyLength]
	if i := strings.LastIndex(cut, "\n"); i > 0 {
		cut = cut[:i]
	}
	return cut + "\n\n_Reply 'menu' for more options._"
}
