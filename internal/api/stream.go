package api

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"prism-board/internal/storage"
)

// streamBoard pushes the board view as server-sent events, once on connect
// and again after every update notification for the board.
func streamBoard(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		// EventSource cannot set headers, so the token may come as a query param.
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if token := c.QueryParam("token"); authHeader == "" && token != "" {
			authHeader = "Bearer " + token
		}
		userID, err := d.Auth.UserIDFromAuthHeader(authHeader)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		boardID := c.Param("id")
		ctx := c.Request().Context()

		view, _, err := readBoard(ctx, d, boardID)
		switch {
		case errors.Is(err, storage.ErrBoardNotFound):
			return c.NoContent(http.StatusNotFound)
		case err != nil:
			d.Logger.WithError(err).WithField("board", boardID).Error("load board failed")
			return c.String(http.StatusInternalServerError, "failed to load board")
		case view.OwnerID != userID:
			return c.NoContent(http.StatusForbidden)
		}

		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		ch := d.Broker.Subscribe(boardID)
		defer d.Broker.Unsubscribe(boardID, ch)

		h := c.Response().Header()
		h.Set(echo.HeaderContentType, "text/event-stream")
		h.Set(echo.HeaderCacheControl, "no-cache")
		h.Set(echo.HeaderConnection, "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		c.Response().WriteHeader(http.StatusOK)

		for {
			data, err := sonic.Marshal(view)
			if err != nil {
				return err
			}
			if err := writeEvent(c.Response(), data); err != nil {
				d.Logger.WithError(err).WithField("board", boardID).Debug("stream closed")
				return nil
			}
			flusher.Flush()

			select {
			case <-ctx.Done():
				return nil
			case <-ch:
			}
			view, _, err = readBoard(ctx, d, boardID)
			if err != nil {
				if ctx.Err() == nil {
					d.Logger.WithError(err).WithField("board", boardID).Error("reload streamed board")
				}
				return nil
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, data []byte) error {
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n\n"))
	return err
}
