package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/mpiangona/core/event"
	"github.com/trezcool/mpiangona/core/guard"
	"github.com/trezcool/mpiangona/core/notification"
	"github.com/trezcool/mpiangona/core/role"
)

const (
	mimeEventStream = "text/event-stream"
	streamBuffer    = 32
)

type notificationApi struct {
	center *notification.Center
	bus    *event.Bus
	auth   *Authenticator
}

func registerNotificationAPI(g *echo.Group, authed []echo.MiddlewareFunc, auth *Authenticator, deps ServerDeps) {
	api := notificationApi{center: deps.Notifications, bus: deps.Bus, auth: auth}

	ng := g.Group("/notifications", authed...)
	ng.GET("", api.list)
	ng.GET("/stream", api.stream(guard.Require(), notification.Tables...))
	ng.GET("/finances/stream", api.stream(guard.Require(role.ViewFinances), event.TableContributions, event.TableDues))
	ng.POST("/read-all", api.markAllAsRead)
	ng.POST("/:id/read", api.markAsRead)
	ng.DELETE("/:id", api.remove)
	ng.DELETE("", api.clear)
}

// Handlers

func (api *notificationApi) list(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, NotificationsResponse{
		Items:  api.center.List(),
		Unread: api.center.UnreadCount(),
	})
}

// stream pushes the changes of `tables` as server-sent events for as long as the guard allows it.
// Signing out or losing a capability of `req` ends the stream with a "closed" event.
func (api *notificationApi) stream(req guard.Requirement, tables ...string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		reqCtx := ctx.Request().Context()

		g := guard.New(req)
		ended := make(chan guard.Decision, 1)
		g.OnChange(func(d guard.Decision) {
			if d.State == guard.Denied {
				select {
				case ended <- d:
				default:
				}
			}
		})

		sess := getContextSession(ctx)
		switch d := g.Resolve(sess); d.Outcome {
		case guard.Render:
		case guard.Redirect:
			return errUnauthorized
		default:
			return errAccessRefused
		}

		watch := g.Watch(api.bus, func() (*guard.Session, error) {
			_, fresh, err := api.auth.lookup(reqCtx, sess.ID)
			return fresh, err
		})
		defer watch.Unsubscribe()

		items := make(chan notification.Notification, streamBuffer)
		feed := api.bus.Subscribe(event.Tables(tables...), func(c event.Change) {
			typ, title, msg := notification.Describe(c)
			select {
			case items <- notification.Notification{Type: typ, Title: title, Message: msg, Timestamp: c.At}:
			default: // slow reader, drop
			}
		})
		defer feed.Unsubscribe()

		res := ctx.Response()
		res.Header().Set(echo.HeaderContentType, mimeEventStream)
		res.Header().Set("Cache-Control", "no-cache")
		res.WriteHeader(http.StatusOK)
		if err := writeEvent(res, "ready", struct{}{}); err != nil {
			return nil
		}

		for {
			select {
			case <-reqCtx.Done():
				return nil
			case d := <-ended:
				_ = writeEvent(res, "closed", map[string]string{"state": d.State.String(), "outcome": d.Outcome.String()})
				return nil
			case n := <-items:
				if err := writeEvent(res, "notification", n); err != nil {
					return nil
				}
			}
		}
	}
}

func writeEvent(res *echo.Response, name string, data interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(res, "event: %s\ndata: %s\n\n", name, b); err != nil {
		return err
	}
	res.Flush()
	return nil
}

func (api *notificationApi) markAsRead(ctx echo.Context) error {
	if err := api.center.MarkAsRead(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) markAllAsRead(ctx echo.Context) error {
	api.center.MarkAllAsRead()
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) remove(ctx echo.Context) error {
	if err := api.center.Remove(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationApi) clear(ctx echo.Context) error {
	api.center.Clear()
	return ctx.NoContent(http.StatusNoContent)
}

type NotificationsResponse struct {
	Items  []notification.Notification `json:"items"`
	Unread int                         `json:"unread"`
}
