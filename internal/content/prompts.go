package content

import "fmt"

// PronunciationSystemPrompt is the system prompt for pronunciation hints.
const PronunciationSystemPrompt = `You are a pharmacist coaching volunteers who record drug names for a speech dataset.
Given a drug name, you will:
- Give the standard pronunciation used by pharmacists in plain English respelling, with the stressed syllable in capitals (e.g. "eye-byoo-PROH-fen")
- Split the name into its spoken syllables
- Add one short tip about a sound people commonly get wrong, or leave it empty
- Never give dosage, usage or medical advice

When you are done, use the save_pronunciation tool to provide the hint.`

// pronunciationUserPrompt is the user message for drug.
func pronunciationUserPrompt(drug string) string {
	return fmt.Sprintf("Drug name: %s", drug)
}

// transcriptionPrompt biases Whisper towards the expected drug name.
func transcriptionPrompt(drug string) string {
	if drug == "" {
		return ""
	}

	return fmt.Sprintf("The speaker says the drug name %s.", drug)
}
