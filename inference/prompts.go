package inference

import (
	"fmt"
	"strings"
)

const evaluatorFormatPrompt = `Please provide your feedback in JSON format with the following keys: "rating" (1-10), "likes" (array of strings), "dislikes" (array of strings), "suggestions" (string).`

const moderatorSystemPrompt = `You are a focus group moderator. Analyze the reviews below and synthesize:
1) A concise summary (2-3 sentences) of consensus and key disagreements.
2) The 3-5 most critical, actionable suggestions (prioritized by impact and frequency).
3) Any notable patterns by persona type.

Return JSON exactly as:
{"summary":"...","keyPoints":["...","..."],"patterns":"..."}`

const editorSystemPrompt = `You are an expert editor tasked with improving content based on focus group feedback.

Your task:
1. Identify the 2-3 most critical issues from feedback.
2. Rewrite to address those issues while preserving strengths.
3. Aim to increase clarity and conciseness.
4. Do NOT make dramatic changes; iterate within the spirit of the original.

Output JSON:
{
  "revisedContent": "...",
  "changesSummary": "...",
  "reasoning": "...",
  "instructionsApplied": true
}`

func evaluatorContentPrompt(in EvaluationInput) string {
	var b strings.Builder
	if in.Audience != "" {
		fmt.Fprintf(&b, "Target audience: %s\n\n", in.Audience)
	}
	fmt.Fprintf(&b, "Here is the content to evaluate:\n\n%s", in.Content)
	return b.String()
}

func moderatorUserPrompt(items []FeedbackItem) string {
	var b strings.Builder
	for _, f := range items {
		fmt.Fprintf(&b, "\nParticipant: %s (%s)\nRating: %d/10\nLikes: %s\nDislikes: %s\nSuggestions: %s\n---",
			f.ParticipantID, f.ParticipantType, f.Rating,
			strings.Join(f.Likes, ", "), strings.Join(f.Dislikes, ", "), f.Suggestions)
	}
	return b.String()
}

func editorUserPrompt(req RevisionRequest) string {
	themes := make([]string, 0, len(req.Aggregate.Themes))
	for _, t := range req.Aggregate.Themes {
		themes = append(themes, fmt.Sprintf("%s (%s)", t.Theme, t.Sentiment))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Original content:\n[%s]\n\nFocus group feedback summary:\n", req.OriginalContent)
	fmt.Fprintf(&b, "- Average rating: %.2f/10\n", req.Aggregate.AverageRating)
	fmt.Fprintf(&b, "- Top likes: %s\n", strings.Join(req.Aggregate.TopLikes, ", "))
	fmt.Fprintf(&b, "- Top dislikes: %s\n", strings.Join(req.Aggregate.TopDislikes, ", "))
	fmt.Fprintf(&b, "- Specific suggestions: %s", strings.Join(themes, ", "))

	if req.EditorInstructions != "" {
		fmt.Fprintf(&b, "\n\nAdditional editor instructions: %s", req.EditorInstructions)
	}
	if req.Moderator != nil {
		fmt.Fprintf(&b, "\n\nModerator's synthesized summary:\n%s\nKey points: %s\n",
			req.Moderator.Summary, strings.Join(req.Moderator.KeyPoints, "; "))
	}
	if len(req.SelectedFeedback) > 0 {
		b.WriteString("\n\nDetailed feedback from selected participants:\n")
		for _, f := range req.SelectedFeedback {
			fmt.Fprintf(&b, "\n- %s (%s, rated %d/10):\n  Likes: %s\n  Dislikes: %s\n  Suggestions: %s",
				f.ParticipantID, f.ParticipantType, f.Rating,
				strings.Join(f.Likes, ", "), strings.Join(f.Dislikes, ", "), f.Suggestions)
		}
	}
	return b.String()
}
