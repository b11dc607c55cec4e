package mail

import "fmt"

// VerificationMessage builds the subject and body for a verification code
// email.
func VerificationMessage(clientURL, idNumber, code string) (subject, body string) {
	subject = "Verify your Scholaris email address"
	body = fmt.Sprintf(
		"Hello %s,\n\n"+
			"Your verification code is %s. It expires in 24 hours.\n\n"+
			"Enter the code at %s/verify-email to confirm your address.\n\n"+
			"If you did not request this, you can ignore this message.\n",
		idNumber, code, clientURL)
	return subject, body
}
