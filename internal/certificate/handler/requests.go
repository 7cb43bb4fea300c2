package handler

import (
	"errors"
	"strings"

	"etatcivil/internal/payment"
	"etatcivil/pkg/platform/validation"
)

type DownloadRequest struct {
	Copies  int    `json:"copies"`
	Channel string `json:"channel"`
}

func (r *DownloadRequest) Normalize() {
	r.Channel = strings.ToLower(strings.TrimSpace(r.Channel))
}

func (r *DownloadRequest) Validate() error {
	if r.Copies < 1 {
		return errors.New("copies must be at least 1")
	}
	if r.Channel == "" {
		return errors.New("channel is required")
	}
	return validation.CheckStringLength("channel", r.Channel, validation.MaxChannelLength)
}

// PaymentCallbackRequest is the processor's report for one reference.
type PaymentCallbackRequest struct {
	Reference string `json:"reference"`
	Outcome   string `json:"outcome"`
}

func (r *PaymentCallbackRequest) Normalize() {
	r.Reference = strings.TrimSpace(r.Reference)
	r.Outcome = strings.ToLower(strings.TrimSpace(r.Outcome))
}

func (r *PaymentCallbackRequest) Validate() error {
	if r.Reference == "" {
		return errors.New("reference is required")
	}
	if err := validation.CheckStringLength("reference", r.Reference, validation.MaxReferenceLength); err != nil {
		return err
	}
	if !payment.Outcome(r.Outcome).IsFinal() {
		return errors.New("outcome must be paid or failed")
	}
	return nil
}
