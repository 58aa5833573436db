// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package compositor

import (
	"fmt"

	"github.com/mstarongithub/strata/geom"
	"github.com/mstarongithub/strata/ipc"
	"github.com/mstarongithub/strata/view"
)

var _ ipc.Provider = (*Server)(nil)

func toBox(b geom.Box) ipc.Box {
	return ipc.Box{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

// QueryOutputs answers an ipc output query
func (s *Server) QueryOutputs(req ipc.OutputRequest) (ipc.OutputResponse, error) {
	res := ipc.OutputResponse{}
	if req.IncludeModes {
		res.OutputModes = make(map[string][]ipc.OutputMode)
	}
	for _, o := range s.Outputs.Outputs() {
		if req.SpecifiesOutput && o.Name != req.TargetOutput {
			continue
		}
		res.Outputs = append(res.Outputs, ipc.OutputInfo{
			Name:        o.Name,
			Enabled:     o.Enabled,
			Nested:      o.Nested,
			X:           o.Box.X,
			Y:           o.Box.Y,
			Width:       o.Box.Width,
			Height:      o.Box.Height,
			RefreshRate: o.Mode.Refresh,
			Usable:      toBox(s.usable(o)),
		})
		if req.IncludeModes {
			var modes []ipc.OutputMode
			for _, m := range o.Device().Modes() {
				modes = append(modes, ipc.OutputMode{
					Width:       m.Width,
					Height:      m.Height,
					RefreshRate: m.Refresh,
					Preferred:   m.Preferred,
				})
			}
			res.OutputModes[o.Name] = modes
		}
	}
	res.OutputsFound = len(res.Outputs)
	if req.SpecifiesOutput && res.OutputsFound == 0 {
		return res, fmt.Errorf("output %q: %w", req.TargetOutput, ipc.ErrNotFound)
	}
	return res, nil
}

func (s *Server) QueryWindows() ipc.WindowsResponse {
	res := ipc.WindowsResponse{Windows: []ipc.WindowInfo{}}
	focused := s.Views.Focused()
	for _, v := range s.Views.Mapped() {
		res.Windows = append(res.Windows, ipc.WindowInfo{
			ID:      uint64(v.ID),
			Title:   v.Title,
			AppID:   v.AppID,
			Box:     toBox(v.Geometry()),
			State:   v.State().String(),
			Focused: v == focused,
		})
	}
	return res
}

// WindowAction applies an ipc window action to the window with id
func (s *Server) WindowAction(id uint64, action string) error {
	v, err := s.Views.Get(view.ID(id))
	if err != nil || !v.Mapped() {
		return fmt.Errorf("window %d: %w", id, ipc.ErrNotFound)
	}
	switch action {
	case ipc.ACTION_FOCUS:
		if s.Overview.Active() {
			s.Overview.Deactivate()
		}
		s.Views.FocusView(v)
	case ipc.ACTION_CLOSE:
		s.Views.Close(v)
	case ipc.ACTION_MINIMIZE:
		s.RequestMinimize(v)
	case ipc.ACTION_RESTORE:
		s.Views.Restore(v)
		s.Arrange()
	case ipc.ACTION_MAXIMIZE, ipc.ACTION_UNMAXIMIZE:
		s.setMaximized(v, action == ipc.ACTION_MAXIMIZE)
	case ipc.ACTION_FULLSCREEN, ipc.ACTION_UNFULLSCREEN:
		s.setFullscreen(v, action == ipc.ACTION_FULLSCREEN)
	default:
		return fmt.Errorf("%w: unknown window action %q", ipc.ErrBadRequest, action)
	}
	return nil
}
