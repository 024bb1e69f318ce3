package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"meetgate/internal/action"
	"meetgate/internal/dataType"
	"meetgate/internal/gate"
	"meetgate/internal/utils"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// pageData feeds the state pages rendered from cfg.PagePath.
type pageData struct {
	NodeName    string
	ConnectIP   string
	Date        string
	MeetingID   string
	OtpSent     bool
	ButtonLabel string
}

// handleJoin is the gate renderer: it resolves the gate for this session
// and meeting, kicks off the context load on first sight, and renders per
// the current authorization state.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	meetingID := r.URL.Query().Get("meetingId")
	if meetingID == "" {
		http.Error(w, "missing meetingId", http.StatusBadRequest)
		return
	}

	sessionID := ensureSession(w, r)
	reqData := processRequestData(s.cfg, r, meetingID, sessionID)
	g := s.registry.Gate(sessionID, meetingID)

	// Loads outlive this request on purpose: the fetches belong to the
	// gate's lifetime, not to one poll of the join page.
	g.LoadContext(context.Background(), s.meetings, s.locations, reqData)

	switch state := g.State(); state {
	case action.Loading:
		s.renderPage(w, reqData, "loading.html", http.StatusOK, s.pageData(reqData, g))

	case action.VpnBlocked:
		utils.LogInfo(reqData, "Not authorized: VPN detected", "handleJoin")
		w.Header().Set("Location", s.cfg.HomeRoute)
		w.WriteHeader(http.StatusFound)

	case action.PendingRequest:
		if g.Dismissed() {
			s.renderPage(w, reqData, "403.html", http.StatusForbidden, s.pageData(reqData, g))
			return
		}
		s.renderPage(w, reqData, "request_access.html", http.StatusForbidden, s.pageData(reqData, g))

	case action.Authorized, action.AuthorizedByOverride:
		utils.LogInfo(reqData, "Entry granted: "+state.String(), "handleJoin")
		s.renderPage(w, reqData, "authorized.html", http.StatusOK, s.pageData(reqData, g))

	default:
		// should never happen
		utils.LogError(reqData, fmt.Sprintf("Unknown gate state: %v", state), "handleJoin")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) pageData(reqData dataType.JoinRequest, g *gate.Gate) pageData {
	label := "Send OTP"
	if g.OtpSent() {
		label = "Submit Request"
	}
	return pageData{
		NodeName:    s.cfg.NodeName,
		ConnectIP:   reqData.RemoteIP,
		Date:        time.Now().Format("2006-01-02 15:04:05"),
		MeetingID:   reqData.MeetingID,
		OtpSent:     g.OtpSent(),
		ButtonLabel: label,
	}
}

func (s *Server) renderPage(w http.ResponseWriter, reqData dataType.JoinRequest, page string, status int, data pageData) {
	tpl, err := template.ParseFiles(s.cfg.PagePath + "/" + page)
	if err != nil {
		utils.LogError(reqData, fmt.Sprintf("Error parsing template: %v", err), "renderPage")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err = tpl.Execute(w, data); err != nil {
		utils.LogError(reqData, fmt.Sprintf("Error executing template: %v", err), "renderPage")
	}
}

type sendOtpPayload struct {
	MeetingID string `json:"meetingId" validate:"required"`
	dataType.RequestInfo
}

// handleSendOtp issues a fresh code for this session's gate and dispatches
// it to the requester's email. Repeat calls re-issue with no cooldown.
func (s *Server) handleSendOtp(w http.ResponseWriter, r *http.Request) {
	var payload sendOtpPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request info: "+err.Error())
		return
	}

	sessionID := ensureSession(w, r)
	reqData := processRequestData(s.cfg, r, payload.MeetingID, sessionID)
	g := s.registry.Gate(sessionID, payload.MeetingID)

	s.sharedMem.OTPIssueCounter.Add(sessionID+":"+payload.MeetingID, 1)

	if err := g.IssueOtp(r.Context(), s.mailer, payload.RequestInfo); err != nil {
		utils.LogError(reqData, fmt.Sprintf("OTP error: %v", err), "handleSendOtp")
		writeJSONError(w, http.StatusBadGateway, "Failed to send OTP.")
		return
	}

	utils.LogInfo(reqData, "OTP dispatched", "handleSendOtp")
	writeJSON(w, http.StatusOK, map[string]any{"sent": true, "message": "OTP sent to your email."})
}

type submitRequestPayload struct {
	MeetingID string `json:"meetingId" validate:"required"`
	OTP       string `json:"otp"`
}

// handleSubmitRequest verifies the entered code and persists the access
// request. A successful submission authorizes the session for this meeting
// without re-checking city or VPN.
func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	var payload submitRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "missing meetingId")
		return
	}

	sessionID := ensureSession(w, r)
	reqData := processRequestData(s.cfg, r, payload.MeetingID, sessionID)
	g := s.registry.Gate(sessionID, payload.MeetingID)
	counterKey := sessionID + ":" + payload.MeetingID

	if s.ruleSet.OTPRule.Enabled {
		for window, limit := range s.ruleSet.OTPRule.FailureLimit {
			if s.sharedMem.OTPFailureCounter.Query(counterKey, window) > limit {
				utils.LogInfo(reqData, fmt.Sprintf("OTP failure limit exceeded: window %d limit %d", window, limit), "handleSubmitRequest")
				writeJSONError(w, http.StatusForbidden, "Too many failed attempts.")
				return
			}
		}
	}

	rec, err := g.SubmitRequest(r.Context(), s.store, payload.OTP, reqData)
	if errors.Is(err, gate.ErrOtpMismatch) {
		s.sharedMem.OTPFailureCounter.Add(counterKey, 1)
		writeJSONError(w, http.StatusBadRequest, "Incorrect OTP.")
		return
	}
	if err != nil {
		utils.LogError(reqData, fmt.Sprintf("Request submission error: %v", err), "handleSubmitRequest")
		writeJSONError(w, http.StatusBadGateway, "Failed to submit request.")
		return
	}

	s.sharedMem.OTPFailureCounter.Reset(counterKey)
	if s.events != nil {
		if err := s.events.PublishRequestCreated(rec); err != nil {
			utils.LogError(reqData, fmt.Sprintf("Event publish failed: %v", err), "handleSubmitRequest")
		}
	}

	utils.LogInfo(reqData, "Access request persisted: "+rec.ID, "handleSubmitRequest")
	writeJSON(w, http.StatusOK, map[string]any{"authorized": true, "requestId": rec.ID})
}

type dismissPayload struct {
	MeetingID string `json:"meetingId" validate:"required"`
}

// handleDismiss hides the request form. Authorization state is untouched.
func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	var payload dismissPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "missing meetingId")
		return
	}

	sessionID := ensureSession(w, r)
	s.registry.Gate(sessionID, payload.MeetingID).Dismiss()
	writeJSON(w, http.StatusOK, map[string]any{"dismissed": true})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	var builder strings.Builder
	builder.WriteString("ok\n")
	builder.WriteString("version=")
	builder.WriteString(dataType.MeetGateVersion)
	builder.WriteString("\n")
	builder.WriteString("time=")
	builder.WriteString(time.Now().Format(time.RFC3339))
	builder.WriteString("\n")
	builder.WriteString("ts=")
	builder.WriteString(strconv.FormatFloat(float64(time.Now().UnixNano())/1e9, 'f', 3, 64))
	builder.WriteString("\n")
	builder.WriteString("node=")
	builder.WriteString(s.cfg.NodeName)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(builder.String()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
