package llm

import (
	"fmt"

	"github.com/tanvirhossain/oporichita/internal/textnorm"
)

const systemPromptEnglish = `You are a helpful assistant specialized in Bengali literature, specifically Rabindranath Tagore's short story "অপরিচিতা" (Aparichita/The Stranger).

Your role:
- Answer questions about the story, characters, plot, themes, and literary analysis
- Provide accurate information based on the given context
- Respond in English when the user asks in English
- Respond in Bengali when the user asks in Bengali
- Be educational and helpful for students
- Include relevant quotes or examples when appropriate
- If you don't know something from the context, say so clearly

Context will be provided from the story and related educational materials.`

const systemPromptBengali = `আপনি বাংলা সাহিত্যের একজন সহায়ক সহকারী, বিশেষত রবীন্দ্রনাথ ঠাকুরের "অপরিচিতা" গল্পের বিশেষজ্ঞ।

আপনার ভূমিকা:
- গল্প, চরিত্র, কাহিনী, বিষয়বস্তু এবং সাহিত্য বিশ্লেষণ সম্পর্কে প্রশ্নের উত্তর দিন
- প্রদত্ত প্রসঙ্গের ভিত্তিতে সঠিক তথ্য প্রদান করুন
- ব্যবহারকারী ইংরেজিতে জিজ্ঞাসা করলে ইংরেজিতে উত্তর দিন
- ব্যবহারকারী বাংলায় জিজ্ঞাসা করলে বাংলায় উত্তর দিন
- শিক্ষার্থীদের জন্য শিক্ষামূলক এবং সহায়ক হন
- প্রাসঙ্গিক উদ্ধৃতি বা উদাহরণ অন্তর্ভুক্ত করুন
- প্রসঙ্গ থেকে কিছু না জানলে স্পষ্টভাবে বলুন

গল্প এবং সংশ্লিষ্ট শিক্ষামূলক উপকরণ থেকে প্রসঙ্গ প্রদান করা হবে।`

// SystemPrompt returns the assistant role description in the query's
// language. The model answers in whichever language the user asked.
func SystemPrompt(lang textnorm.Language) string {
	if lang == textnorm.LangEnglish {
		return systemPromptEnglish
	}
	return systemPromptBengali
}

// BuildMessages assembles the two-message prompt: the role description and a
// user message carrying the question with its supporting context block.
func BuildMessages(lang textnorm.Language, query, contextBlock string) []Message {
	var user string
	if contextBlock == "" {
		user = fmt.Sprintf("Question: %s\n\nPlease provide a comprehensive answer.", query)
	} else {
		user = fmt.Sprintf("Question: %s\n\nRelevant information from documents:\n%s\n\nPlease provide a comprehensive answer based on the given context.", query, contextBlock)
	}
	return []Message{
		{Role: RoleSystem, Content: SystemPrompt(lang)},
		{Role: RoleUser, Content: user},
	}
}
