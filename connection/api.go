package connection

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/michaelhil/open-neon-go/device"
	"github.com/michaelhil/open-neon-go/errors"
	"github.com/michaelhil/open-neon-go/pkg/retry"
)

// Device API paths. The same path serves both the HTTP resource and,
// where the device pushes, its WebSocket channel.
const (
	apiStatusPath      = "/api/status"
	apiRecordingPath   = "/api/recording"
	apiCalibrationPath = "/api/calibration"
	apiSettingsPath    = "/api/settings"
	apiGazePath        = "/api/gaze"
)

// RecordingStatus is the device's recording resource.
type RecordingStatus struct {
	Recording   bool   `json:"recording"`
	RecordingID string `json:"recording_id"`
}

// CalibrationStatus is the device's calibration resource.
type CalibrationStatus struct {
	Calibrating bool   `json:"calibrating"`
	Quality     string `json:"quality,omitempty"`
}

// call is the shared request/response path: precondition check,
// request timeout, and response validation.
func (c *Connection) call(ctx context.Context, operation string,
	fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {

	if c.State() != StateConnected {
		return nil, errors.NotConnected(operation)
	}
	body, err := retry.WithTimeout(ctx, operation, c.cfg.RequestTimeout.Std(), fn)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, errors.New(errors.KindAPI, errors.CodeInvalidResponse,
			operation+": response is not valid JSON")
	}
	return body, nil
}

func (c *Connection) get(ctx context.Context, operation, path string) ([]byte, error) {
	return c.call(ctx, operation, func(ctx context.Context) ([]byte, error) {
		return c.tr.Get(ctx, c.baseURL+path)
	})
}

func (c *Connection) post(ctx context.Context, operation, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindData, errors.CodeInvalidFormat,
			operation+": encode request")
	}
	return c.call(ctx, operation, func(ctx context.Context) ([]byte, error) {
		return c.tr.Post(ctx, c.baseURL+path, body)
	})
}

// GetStatus fetches the device status on demand, merges it into the
// descriptor, and returns the refreshed snapshot. Push updates arrive
// through OnEvent independently of this call.
func (c *Connection) GetStatus(ctx context.Context) (device.Descriptor, error) {
	body, err := c.get(ctx, "get status", apiStatusPath)
	if err != nil {
		return device.Descriptor{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.desc.Merge(body); err != nil {
		return device.Descriptor{}, err
	}
	return c.desc.Snapshot(), nil
}

type recordingRequest struct {
	Action      string `json:"action"`
	RecordingID string `json:"recording_id,omitempty"`
}

// StartRecording starts a recording and returns its ID. An empty id
// asks the library to generate one.
func (c *Connection) StartRecording(ctx context.Context, id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	body, err := c.post(ctx, "start recording", apiRecordingPath,
		recordingRequest{Action: "start", RecordingID: id})
	if err != nil {
		if errors.IsCode(err, errors.CodeNotConnected) {
			return "", err
		}
		return "", errors.Wrap(err, errors.KindRecording,
			errors.CodeRecordingStartFailed, "start recording")
	}

	var status RecordingStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return "", errors.Wrap(err, errors.KindRecording,
			errors.CodeRecordingStartFailed, "decode start recording response")
	}
	if status.RecordingID != "" {
		id = status.RecordingID
	}
	c.logger.Info("recording started", "recording_id", id)
	return id, nil
}

// StopRecording stops the active recording. Stopping when nothing is
// recording is not an error on the device side.
func (c *Connection) StopRecording(ctx context.Context) error {
	_, err := c.post(ctx, "stop recording", apiRecordingPath,
		recordingRequest{Action: "stop"})
	if err != nil {
		if errors.IsCode(err, errors.CodeNotConnected) {
			return err
		}
		return errors.Wrap(err, errors.KindRecording,
			errors.CodeRecordingStopFailed, "stop recording")
	}
	c.logger.Info("recording stopped")
	return nil
}

// GetRecordingStatus fetches the device's recording resource.
func (c *Connection) GetRecordingStatus(ctx context.Context) (RecordingStatus, error) {
	body, err := c.get(ctx, "get recording status", apiRecordingPath)
	if err != nil {
		return RecordingStatus{}, err
	}
	var status RecordingStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return RecordingStatus{}, errors.New(errors.KindAPI, errors.CodeInvalidResponse,
			"decode recording status")
	}
	return status, nil
}

type calibrationRequest struct {
	Action string `json:"action"`
}

// checkCalibrationSupport gates calibration calls on the device model.
func (c *Connection) checkCalibrationSupport() error {
	model := c.Descriptor().Model
	if !model.SupportsCalibration() {
		return errors.Device(errors.CodeNotImplemented,
			"calibration is not supported by this device model").
			WithDetails(map[string]any{"model": string(model)})
	}
	return nil
}

// StartCalibration starts a calibration session on models that
// support it.
func (c *Connection) StartCalibration(ctx context.Context) error {
	if err := c.checkCalibrationSupport(); err != nil {
		return err
	}
	_, err := c.post(ctx, "start calibration", apiCalibrationPath,
		calibrationRequest{Action: "start"})
	if err != nil {
		if errors.IsCode(err, errors.CodeNotConnected) {
			return err
		}
		return errors.Wrap(err, errors.KindCalibration,
			errors.CodeCalibrationFailed, "start calibration")
	}
	c.logger.Info("calibration started")
	return nil
}

// StopCalibration ends the calibration session.
func (c *Connection) StopCalibration(ctx context.Context) error {
	if err := c.checkCalibrationSupport(); err != nil {
		return err
	}
	_, err := c.post(ctx, "stop calibration", apiCalibrationPath,
		calibrationRequest{Action: "stop"})
	if err != nil {
		if errors.IsCode(err, errors.CodeNotConnected) {
			return err
		}
		return errors.Wrap(err, errors.KindCalibration,
			errors.CodeCalibrationFailed, "stop calibration")
	}
	c.logger.Info("calibration stopped")
	return nil
}

// GetSettings fetches the device's settings resource. Settings are an
// open key set that varies by model and firmware, so they stay a map.
func (c *Connection) GetSettings(ctx context.Context) (map[string]any, error) {
	body, err := c.get(ctx, "get settings", apiSettingsPath)
	if err != nil {
		return nil, err
	}
	var settings map[string]any
	if err := json.Unmarshal(body, &settings); err != nil {
		return nil, errors.New(errors.KindAPI, errors.CodeInvalidResponse,
			"decode settings")
	}
	return settings, nil
}

// UpdateSettings merges changes into the device's settings and returns
// the resulting resource. Keys absent from changes are untouched.
func (c *Connection) UpdateSettings(ctx context.Context, changes map[string]any) (map[string]any, error) {
	if len(changes) == 0 {
		return nil, errors.InvalidParameter("no settings changes given")
	}
	body, err := c.post(ctx, "update settings", apiSettingsPath, changes)
	if err != nil {
		return nil, err
	}
	var settings map[string]any
	if err := json.Unmarshal(body, &settings); err != nil {
		return nil, errors.New(errors.KindAPI, errors.CodeInvalidResponse,
			"decode settings")
	}
	c.logger.Info("settings updated", "keys", len(changes))
	return settings, nil
}

// GetCalibrationStatus fetches the device's calibration resource.
func (c *Connection) GetCalibrationStatus(ctx context.Context) (CalibrationStatus, error) {
	if err := c.checkCalibrationSupport(); err != nil {
		return CalibrationStatus{}, err
	}
	body, err := c.get(ctx, "get calibration status", apiCalibrationPath)
	if err != nil {
		return CalibrationStatus{}, err
	}
	var status CalibrationStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return CalibrationStatus{}, errors.New(errors.KindAPI, errors.CodeInvalidResponse,
			"decode calibration status")
	}
	return status, nil
}
