package server

import (
	"log"
	"meetgate/internal/collab"
	"meetgate/internal/config"
	"meetgate/internal/dataType"
	"meetgate/internal/gate"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// RequestEvents publishes persisted access requests for downstream tooling.
type RequestEvents interface {
	PublishRequestCreated(rec dataType.AccessRequest) error
}

// Server wires the gate state machine to its collaborators and the HTTP
// surface.
type Server struct {
	cfg       *config.MainConfig
	ruleSet   *config.RuleSet
	registry  *Registry
	sharedMem *dataType.SharedMemory
	meetings  gate.MeetingLookup
	locations gate.LocationLookup
	mailer    gate.OtpMailer
	store     gate.RequestStore
	events    RequestEvents
	validate  *validator.Validate
}

func NewServer(cfg *config.MainConfig, ruleSet *config.RuleSet) *Server {
	segSize := int64(3600)
	for window := range ruleSet.OTPRule.FailureLimit {
		if window > segSize {
			segSize = window
		}
	}

	return &Server{
		cfg:      cfg,
		ruleSet:  ruleSet,
		registry: NewRegistry(24*time.Hour, time.Minute),
		sharedMem: &dataType.SharedMemory{
			OTPIssueCounter:   dataType.NewCounter(64, segSize),
			OTPFailureCounter: dataType.NewCounter(64, segSize),
		},
		meetings:  &collab.HTTPMeetingLookup{BaseURL: cfg.MeetingAPI},
		locations: &collab.HTTPLocationLookup{URL: cfg.LocationAPI},
		mailer:    &collab.HTTPOtpMailer{URL: cfg.OtpMailAPI},
		store:     &collab.HTTPRequestStore{URL: cfg.RequestAPI},
		validate:  validator.New(),
	}
}

// Router builds the gate routes under cfg.WebPath.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(s.cfg.WebPath+"/join", s.handleJoin).Methods("GET")
	r.HandleFunc(s.cfg.WebPath+"/send_otp", s.handleSendOtp).Methods("POST")
	r.HandleFunc(s.cfg.WebPath+"/submit_request", s.handleSubmitRequest).Methods("POST")
	r.HandleFunc(s.cfg.WebPath+"/dismiss", s.handleDismiss).Methods("POST")
	r.HandleFunc(s.cfg.WebPath+"/health_check", s.handleHealthCheck).Methods("GET")
	return r
}

// StartServer starts the HTTP server
func StartServer(cfg *config.MainConfig, ruleSet *config.RuleSet) error {
	s := NewServer(cfg, ruleSet)
	defer s.registry.Stop()

	if cfg.NatsURL != "" {
		pub, err := collab.ConnectEvents(cfg.NatsURL, cfg.NatsSubject)
		if err != nil {
			// events are best-effort; the gate runs without them
			log.Printf("NATS connect failed, events disabled: %v", err)
		} else {
			s.events = pub
			defer pub.Close()
		}
	}

	stopGC := make(chan struct{})
	defer close(stopGC)
	go dataType.StartCounterGC(s.sharedMem.OTPIssueCounter, time.Minute, stopGC)
	go dataType.StartCounterGC(s.sharedMem.OTPFailureCounter, time.Minute, stopGC)

	log.Printf("HTTP Server listening on :%s ...", cfg.Port)
	return http.ListenAndServe(":"+cfg.Port, s.Router())
}

// processRequestData extracts the attributes the gate logs and audits.
// The connecting IP comes from the configured forwarding headers when
// present, falling back to the socket peer.
func processRequestData(cfg *config.MainConfig, r *http.Request, meetingID, sessionID string) dataType.JoinRequest {
	var clientIP string
	for _, headerName := range cfg.ConnectingIPHeaders {
		if ipVal := r.Header.Get(headerName); ipVal != "" {
			if strings.Contains(ipVal, ",") {
				parts := strings.Split(ipVal, ",")
				clientIP = strings.TrimSpace(parts[0])
			} else {
				clientIP = ipVal
			}
			break
		}
	}

	if clientIP == "" {
		ipStr, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			clientIP = r.RemoteAddr
		} else {
			clientIP = ipStr
		}
	}

	return dataType.JoinRequest{
		RemoteIP:  clientIP,
		Uri:       r.RequestURI,
		UserAgent: r.UserAgent(),
		MeetingID: meetingID,
		SessionID: sessionID,
	}
}
