package rag

// Prompts for the three model calls the state machine makes. The grader and
// rewriter run on the fast tier; answer generation runs on the thinking tier.
const (
	graderSystemPrompt = `You are a grader assessing relevance of a retrieved document to a user question.
If the document contains keyword(s) or semantic meaning related to the user question, grade it as relevant.
Give a binary score 'yes' or 'no' score to indicate whether the document is relevant to the question.`

	rewriteSystemPrompt = `You are a question re-writer that converts an input question to a better version for vector retrieval.`

	generateSystemPrompt = `You are a helpful assistant. Answer the user's question based ONLY on the context provided below.
The context is formatted as:
[Source: filename | Location: page or line number]
Content...

When answering:
1. Cite your sources in the text using the format [Source Name, Page/Line].
2. If the context does not contain the answer, say "I don't know."`
)

// contextSeparator joins formatted context entries in the generate prompt.
const contextSeparator = "\n\n---\n\n"
