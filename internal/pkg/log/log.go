// Package log add logging utilities.
package log

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cyradotpink/influencer/internal/pkg/message"
)

// SetLogger sets the default logger's level.
func SetLogger(level string) {
	logrus.SetLevel(logrus.ErrorLevel)
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = time.RFC3339
	logrus.SetFormatter(customFormatter)
	customFormatter.FullTimestamp = true
	switch strings.ToLower(level) {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.ErrorLevel)
	}
}

// ServerMessageToFields renders an inbound server message as log fields.
func ServerMessageToFields(msg *message.ServerMessage) logrus.Fields {
	fields := logrus.Fields{
		"op": msg.Op.String(),
	}
	switch {
	case msg.Event != nil:
		fields["eventType"] = msg.Event.EventType
		fields["eventIntent"] = msg.Event.EventIntent
	case msg.Response != nil:
		fields["requestType"] = msg.Response.RequestType
		fields["requestId"] = msg.Response.RequestID
		fields["result"] = msg.Response.RequestStatus.Result
		fields["code"] = msg.Response.RequestStatus.Code
	case msg.BatchResponse != nil:
		fields["requestId"] = msg.BatchResponse.RequestID
		fields["results"] = len(msg.BatchResponse.Results)
	case msg.Identified != nil:
		fields["negotiatedRpcVersion"] = msg.Identified.NegotiatedRPCVersion
	case msg.Hello != nil:
		fields["challenged"] = msg.Hello.Authentication != nil
	}
	return fields
}

// ResponseToFields renders a correlated response as log fields.
func ResponseToFields(response *message.Response) logrus.Fields {
	return logrus.Fields{
		"requestType": response.RequestType,
		"requestId":   response.RequestID,
		"result":      response.RequestStatus.Result,
		"code":        response.RequestStatus.Code,
	}
}
