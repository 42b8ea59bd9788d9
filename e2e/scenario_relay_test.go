package e2e

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type testRelayScenarioSuite struct {
	BaseRelaySuite
}

func TestRelayScenarioSuite(t *testing.T) {
	suite.Run(t, &testRelayScenarioSuite{})
}

type senderPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type chatDeliveryPayload struct {
	ID   string        `json:"id"`
	From senderPayload `json:"from"`
	Body string        `json:"body"`
}

type statusDeliveryPayload struct {
	From   senderPayload `json:"from"`
	Course string        `json:"course"`
	Status string        `json:"status"`
}

type errorDeliveryPayload struct {
	Message string `json:"message"`
}

func (s *testRelayScenarioSuite) TestFullRelayFlow() {
	var (
		studentToken, teacherToken string
		studentConn, teacherConn   *websocket.Conn
		studentID, teacherID       string
	)

	// --- STEP 0: ACCOUNT SETUP ---
	s.Run("Step 0: Register a student and a teacher sharing courseA", func() {
		studentToken = s.RegisterAccount("u1@campus.test", "U One", "student", []string{"courseA", "courseB"})
		teacherToken = s.RegisterAccount("t1@campus.test", "Ada", "teacher", []string{"courseA"})
	})

	// --- STEP 1: HANDSHAKE GATE ---
	s.Run("Step 1: Reject unauthenticated handshakes before the upgrade", func() {
		s.Require().Equal(http.StatusUnauthorized, s.DialRejected(""))
		s.Require().Equal(http.StatusUnauthorized, s.DialRejected("not-a-valid-token"))
	})

	// --- STEP 2: PRESENCE ON CONNECT ---
	s.Run("Step 2: Teacher sees the student come online in the shared course", func() {
		teacherConn = s.Dial(teacherToken)

		// The handshake answer races the session registration; wait for the
		// teacher session before the student announces itself.
		s.Eventually(func() bool { return s.Relay.SessionCount() == 1 },
			s.Config.ReadTimeout, 10*time.Millisecond)

		studentConn = s.Dial(studentToken)

		frame := s.WaitEvent(teacherConn, "user status")
		var status statusDeliveryPayload
		s.Decode(frame, &status)

		s.Require().Equal("online", status.Status)
		s.Require().Equal("courseA", status.Course)
		s.Require().Equal("U One", status.From.Name)
		studentID = status.From.ID
		s.Require().NotEmpty(studentID)
	})

	// --- STEP 3: COURSE BROADCAST WITH MODERATION ---
	s.Run("Step 3: Course chat is censored and acked, without sender echo", func() {
		s.SendFrame(teacherConn, "chat message", map[string]any{
			"course": "courseA",
			"body":   "settle down you idiot",
		})

		frame := s.WaitEvent(studentConn, "chat message")
		var chat chatDeliveryPayload
		s.Decode(frame, &chat)

		s.Require().Equal("settle down you *****", chat.Body)
		s.Require().Equal("Ada", chat.From.Name)
		teacherID = chat.From.ID
		s.Require().NotEmpty(teacherID)

		// The sender gets an ack, never a copy of its own broadcast.
		ack := s.WaitEvent(teacherConn, "message sent")
		s.Require().Equal("message sent", ack.Event)
	})

	// --- STEP 4: ROLE NOTIFICATION ---
	s.Run("Step 4: Role notification reaches every student and acks the teacher", func() {
		s.SendFrame(teacherConn, "notification", map[string]any{
			"role":  "student",
			"title": "Exam",
			"body":  "Room change tomorrow",
		})

		frame := s.WaitEvent(studentConn, "notification")
		var notification struct {
			From  senderPayload `json:"from"`
			Title string        `json:"title"`
			Body  string        `json:"body"`
		}
		s.Decode(frame, &notification)
		s.Require().Equal("Exam", notification.Title)
		s.Require().Equal(teacherID, notification.From.ID)

		s.WaitEvent(teacherConn, "notification sent")
	})

	// --- STEP 5: DIRECT MESSAGE ---
	s.Run("Step 5: Direct message reaches only the listed recipient", func() {
		s.SendFrame(studentConn, "chat message", map[string]any{
			"to":   []string{teacherID},
			"body": "question about the homework",
		})

		// The teacher never received its own broadcast, so the next chat
		// frame on this connection is the direct message.
		frame := s.WaitEvent(teacherConn, "chat message")
		var chat chatDeliveryPayload
		s.Decode(frame, &chat)
		s.Require().Equal("question about the homework", chat.Body)
		s.Require().Equal(studentID, chat.From.ID)

		s.WaitEvent(studentConn, "message sent")
	})

	// --- STEP 6: TYPING FAN-OUT ---
	s.Run("Step 6: Typing indicator reaches the course without an ack", func() {
		s.SendFrame(studentConn, "typing", map[string]any{
			"course":    "courseA",
			"is_typing": true,
		})

		frame := s.WaitEvent(teacherConn, "user typing")
		var typing struct {
			From     senderPayload `json:"from"`
			IsTyping bool          `json:"is_typing"`
		}
		s.Decode(frame, &typing)
		s.Require().True(typing.IsTyping)
		s.Require().Equal(studentID, typing.From.ID)
	})

	// --- STEP 7: VALIDATION ERRORS STAY ON THE ORIGIN CONNECTION ---
	s.Run("Step 7: Targetless chat is answered with an error frame", func() {
		s.SendFrame(studentConn, "chat message", map[string]any{
			"body": "going nowhere",
		})

		frame := s.WaitEvent(studentConn, "error")
		var failure errorDeliveryPayload
		s.Decode(frame, &failure)
		s.Require().NotEmpty(failure.Message)
	})

	// --- STEP 8: HISTORY PERSISTENCE ---
	s.Run("Step 8: The censored broadcast landed in course history", func() {
		s.Eventually(func() bool {
			records, _, err := s.Relay.History("group:courseA", nil)
			if err != nil || len(records) == 0 {
				return false
			}
			return records[0].Body == "settle down you *****"
		}, 5*time.Second, 100*time.Millisecond, "broadcast not persisted within timeout")
	})

	// --- STEP 9: PRESENCE ON DISCONNECT ---
	s.Run("Step 9: Closing the student socket broadcasts offline", func() {
		s.Require().NoError(studentConn.Close())

		frame := s.WaitEvent(teacherConn, "user status")
		var status statusDeliveryPayload
		s.Decode(frame, &status)
		s.Require().Equal("offline", status.Status)
		s.Require().Equal(studentID, status.From.ID)

		s.Require().NoError(teacherConn.Close())
	})
}
