package lexicon

// Built-in lexicons. They are created once at init and never mutated.
var (
	// Profanity is matched as whole words. "shut up" is kept for parity with
	// the reference word list even though a single token can never equal it.
	Profanity = New("profanity", WordSet,
		"damn", "hell", "crap", "stupid", "idiot", "moron", "dumb", "shut up",
		"bullshit", "bs", "wtf", "pissed", "suck", "sucks", "fucked", "screwed",
		"bastard", "bitch", "asshole", "jerk", "loser",
	)

	// Sensitive lists disclosures an agent must not make before verification
	Sensitive = New("sensitive", Substring,
		"balance", "account number", "payment history", "transaction",
		"credit score", "debt amount", "owe", "outstanding", "ssn",
		"social security", "bank account", "routing number",
	)

	// Verification lists phrases that establish the customer's identity
	Verification = New("verification", Substring,
		"date of birth", "dob", "address", "zip code", "social security number",
		"mother maiden name", "security question", "verify", "confirm your identity",
	)
)
