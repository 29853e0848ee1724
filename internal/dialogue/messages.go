package dialogue

import (
	"fmt"
	"strings"

	"github.com/mindlyhq/mindly/internal/models"
)

const (
	msgFallback       = "Sorry, I didn't catch that. Type START to begin again."
	msgTryAgain       = "Sorry, something went wrong on our side. Please try again in a moment."
	msgRequestMissing = "Sorry, I couldn't find that request. It may have been removed. Please choose another option."
	msgSessionMissing = "Sorry, I couldn't find that session. Please choose another one."

	msgRoleInvalid = "Invalid selection. Please choose Student, Doctor or Other."
	msgMenuInvalid = "Invalid selection. Please choose one of the options below."

	msgAskStudentName = "Great! What's your name?"
	msgOtherAck       = "Thank you for reaching out. Please tell us how we can help you specifically."
	msgOtherThanks    = "Thank you! Our team has your message and will get back to you. Type START whenever you want to begin again."

	msgDrAskName    = "Mindly - Doctor Registration 🩺\n\nWhat is your full name?"
	msgDrAskQual    = "What is your qualification? (e.g., MD, PhD)"
	msgDrAskLicense = "What is your medical license number?"
	msgDrAskDays    = "What are your working days? (e.g., Mon-Fri)"
	msgDrAskSlots   = "What are your available time slots? (e.g., 9 AM - 5 PM)"
	msgDrRestart    = "Let's start over. What is your full name?"
	msgDrPending    = "Thank you! Your registration will be reviewed and approved before activation. You will be notified once you are live."
	msgDrActive     = "Thank you! Your profile is active. Type HI to open your dashboard."

	msgSupportIntro = "You are now in Emotional Support Mode. 💙\nTell me what's on your mind. (Type MENU anytime to exit)"

	msgBookAskDate    = "Mindly - Session Booking 🗓️\n\nWhat is your preferred date? (e.g., 2024-05-20)"
	msgBookAskTime    = "What time slot would you prefer? (e.g., 2:00 PM)"
	msgBookAskConcern = "Please give a short description of your concern."
	msgBookSent       = "Your request has been sent to an available counsellor. We will confirm shortly and send a video session link once approved. 💙"

	msgNoSessions     = "You have no upcoming sessions."
	msgSessCancelled  = "Your session request has been cancelled. Type HI to return to the menu."
	msgNoPending      = "There are no pending requests right now."
	msgNothingChosen  = "Select at least one request first."
	msgAwaitingReview = "Your profile is awaiting review. You will be able to manage requests once it is activated."

	msgFreeTextExpected = "Please type your answer instead of tapping a button."
)

func rolePrompt(notice string) Reply {
	return Reply{
		Text: "Welcome to Mindly 💙\nPlease select your role:",
		Buttons: []Button{
			roleStudent.button("Student"),
			roleDoctor.button("Doctor"),
			roleOther.button("Other"),
		},
	}.prefixed(notice)
}

func studentMenu(greeting string) Reply {
	text := "Mindly - Student Menu 🎓\nPlease select an option:"
	if greeting != "" {
		text = greeting + "\n\n" + text
	}
	return Reply{
		Text: text,
		Buttons: []Button{
			menuSupport.button("Support Chat"),
			menuBook.button("Book a Session"),
			menuSessions.button("My Sessions"),
		},
	}
}

func welcomeBack(name string) string {
	if name == "" {
		return "Welcome back! 💙"
	}
	return fmt.Sprintf("Welcome back, %s! 💙", name)
}

func doctorRegistrationSummary(d models.DoctorDraft) Reply {
	var b strings.Builder
	b.WriteString("Confirm your registration details:\n")
	fmt.Fprintf(&b, "• Name: %s\n", d.Name)
	fmt.Fprintf(&b, "• Qual: %s\n", d.Qualification)
	fmt.Fprintf(&b, "• License: %s\n", d.License)
	fmt.Fprintf(&b, "• Days: %s\n", d.WorkingDays)
	fmt.Fprintf(&b, "• Slots: %s\n\n", d.Slots)
	b.WriteString("Is this correct? Reply YES to submit or NO to restart.")
	return Reply{
		Text: b.String(),
		Buttons: []Button{
			regConfirm.button("Yes, submit"),
			regRestart.button("No, restart"),
		},
	}
}

func appointmentDetail(heading string, a *models.Appointment) string {
	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	if a.StudentName != "" {
		fmt.Fprintf(&b, "• Student: %s\n", a.StudentName)
	}
	fmt.Fprintf(&b, "• Date: %s\n", a.Date)
	fmt.Fprintf(&b, "• Time: %s\n", a.Time)
	fmt.Fprintf(&b, "• Concern: %s\n", a.Concern)
	fmt.Fprintf(&b, "• Status: %s", a.Status)
	return b.String()
}

func approvedNotice(a models.Appointment, doctor string) string {
	by := "a counsellor"
	if doctor != "" {
		by = "Dr. " + doctor
	}
	return fmt.Sprintf("Good news 💙 Your counselling session on %s at %s has been approved by %s. You will receive the video session link before it starts.", a.Date, a.Time, by)
}

func declinedNotice(a models.Appointment) string {
	return fmt.Sprintf("Your counselling session request for %s at %s could not be accepted. Type HI to book another time. 💙", a.Date, a.Time)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
