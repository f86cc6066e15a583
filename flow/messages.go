package flow

const (
	msgGreeting    = "Hello! 😊 How can I help you today?"
	speechGreeting = "Hello! How can I help you today?"

	msgUnderage    = "⚠️🩸 You are NOT eligible for blood donation (Age < 18) 😔"
	speechUnderage = "You are not eligible for blood donation because age is less than eighteen"

	msgSkipHistory    = "Okay 👍 Skipping donation history questions."
	speechSkipHistory = "Okay, skipping donation history questions"

	msgThanks    = "Thank you for answering all questions ❤️"
	speechThanks = "Thank you for answering all questions"

	msgNotEligible    = "❌🩸 Final Result: Not Eligible for Blood Donation 😔"
	speechNotEligible = "Final result. You are not eligible for blood donation"

	msgPossiblyEligible    = "✅🩸 Final Result: You may be eligible for Blood Donation ❤️"
	speechPossiblyEligible = "Final result. You may be eligible for blood donation"
)
