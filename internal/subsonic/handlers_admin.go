package subsonic

import (
	"lms/internal/catalog"
	"lms/internal/scanner"
)

func (e *Endpoints) handleGetScanStatus(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	n := resp.Root.Child("scanStatus")
	if e.scanner == nil {
		n.AttrBool("scanning", false)
		return nil
	}
	status := e.scanner.Status()
	n.AttrBool("scanning", status.State == scanner.Running)
	if status.CurrentStepStats != nil {
		n.AttrInt("count", int64(status.CurrentStepStats.FilesScanned))
	} else if status.LastCompleteStats != nil {
		n.AttrInt("count", int64(status.LastCompleteStats.FilesScanned))
	}
	return nil
}

func (e *Endpoints) handleStartScan(tx *catalog.Tx, rc *RequestContext, resp *Response) *APIError {
	n := resp.Root.Child("scanStatus")
	if e.scanner == nil {
		return ErrNotImplemented("scanning")
	}
	if err := e.scanner.RequestImmediateScan(false); err != nil {
		return ErrInternal(err.Error())
	}
	status := e.scanner.Status()
	n.AttrBool("scanning", status.State == scanner.Running)
	return nil
}
