package services

// LLM prompt constants for the conversation chain

const (
	// CONDENSE_QUESTION_PROMPT rewrites a follow-up into a standalone question using the chat history.
	CONDENSE_QUESTION_PROMPT = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question.

IMPORTANT: The chat history contains 'PREVIOUS RETRIEVED CONTEXT'. If the user asks about specific details (like threads, IDs, timestamps) that are present in that context, INCLUDE those details in the standalone question.

Return ONLY the standalone question.`

	// LOG_ANALYSIS_PROMPT answers the standalone question from retrieved log excerpts.
	LOG_ANALYSIS_PROMPT = `You are a Log Analysis AI. Use the following context to answer the user. If the answer is not in the logs, say so. Keep it concise.

Context:
%s`

	HIDDEN_CONTEXT_HEADER = "--- PREVIOUS RETRIEVED CONTEXT (Hidden from user) ---"
	HIDDEN_CONTEXT_FOOTER = "--- END CONTEXT ---"
)
