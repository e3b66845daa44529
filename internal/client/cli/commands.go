package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/playerhub/internal/client/models"
)

func (a *App) promptEmail(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return getSimpleText(a.reader, "Enter email", a.out)
}

func (a *App) printSession(verb string, s *models.Session) {
	role := ""
	if s.IsAdmin {
		role = " (admin)"
	}
	fmt.Fprintf(a.out, "%s as %s%s\n", verb, s.Email, role)
}

func (a *App) enroll(ctx context.Context, args []string) error {
	email, err := a.promptEmail(args)
	if err != nil {
		return err
	}

	if err := a.authService.StartEnrollment(ctx, email); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "A verification code was sent to %s\n", email)

	code, err := getSimpleText(a.reader, "Enter the code", a.out)
	if err != nil {
		return err
	}

	pin, err := getPin(a.out, "Choose a 4-digit PIN")
	if err != nil {
		return err
	}
	confirm, err := getPin(a.out, "Repeat PIN")
	if err != nil {
		return err
	}
	if pin != confirm {
		return errors.New("PINs do not match")
	}

	s, err := a.authService.CompleteEnrollment(ctx, email, code, pin)
	if err != nil {
		return err
	}
	a.printSession("Enrolled", s)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	email, err := a.promptEmail(args)
	if err != nil {
		return err
	}

	res, err := a.authService.Lookup(ctx, email)
	if err != nil {
		return err
	}
	if !res.Exists {
		return fmt.Errorf("%s has no PIN yet, run 'playerctl enroll %s'", email, email)
	}

	pin, err := getPin(a.out, "PIN")
	if err != nil {
		return err
	}

	s, err := a.authService.Login(ctx, email, pin)
	if err != nil {
		return err
	}
	a.printSession("Logged in", s)
	return nil
}

func (a *App) logout(ctx context.Context, args []string) error {
	if err := a.authService.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) whoami(ctx context.Context, args []string) error {
	s, err := a.authService.Restore()
	if err != nil {
		return err
	}
	a.printSession("Logged in", s)
	return nil
}

func (a *App) devices(ctx context.Context, args []string) error {
	list, err := a.client.Devices(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No devices")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tROLE")
	for _, d := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.FriendlyName, d.Role)
	}
	return tw.Flush()
}

func (a *App) claim(ctx context.Context, args []string) error {
	name := strings.Join(args[1:], " ")
	if err := a.client.Claim(ctx, args[0], name); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Claimed %s\n", args[0])
	return nil
}

func (a *App) rename(ctx context.Context, args []string) error {
	d, err := a.client.Rename(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Renamed %s to %q\n", d.ID, d.FriendlyName)
	return nil
}

func (a *App) release(ctx context.Context, args []string) error {
	if err := a.client.Release(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Released %s\n", args[0])
	return nil
}

func (a *App) dispatch(ctx context.Context, args []string) error {
	endpoint := ""
	if len(args) > 1 {
		endpoint = args[1]
	}
	d, err := a.client.RegisterDispatch(ctx, args[0], endpoint)
	if err != nil {
		return err
	}
	if d.DispatchEndpoint == "" {
		fmt.Fprintf(a.out, "%s: direct dispatch disabled, commands are queued\n", d.ID)
		return nil
	}
	fmt.Fprintf(a.out, "%s: direct dispatch via %s\n", d.ID, d.DispatchEndpoint)
	return nil
}

func (a *App) members(ctx context.Context, args []string) error {
	list, err := a.client.Members(ctx, args[0])
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tROLE\tADDED BY")
	for _, m := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Email, m.Role, m.AddedBy)
	}
	return tw.Flush()
}

func (a *App) share(ctx context.Context, args []string) error {
	if err := a.client.Share(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Shared %s with %s\n", args[0], args[1])
	return nil
}

func (a *App) unshare(ctx context.Context, args []string) error {
	if err := a.client.Unshare(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed %s from %s\n", args[1], args[0])
	return nil
}

func (a *App) post(ctx context.Context, args []string) error {
	deviceID, path := args[0], args[1]
	title := filepath.Base(path)
	if len(args) > 2 {
		title = strings.Join(args[2:], " ")
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	f, err := openFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	posted, err := a.contentService.Upload(ctx, deviceID, title, contentType, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Posted %q to %s (%s)\n", posted.Title, deviceID, posted.ID)
	return nil
}

func (a *App) content(ctx context.Context, args []string) error {
	list, err := a.client.ListContent(ctx, args[0])
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No content")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tPOSTED BY\tPOSTED AT")
	for _, c := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Title, c.ContentType, c.PostedBy, c.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func (a *App) command(ctx context.Context, args []string) error {
	payload, err := ParsePayload(args[2:])
	if err != nil {
		return err
	}

	res, err := a.client.Command(ctx, args[0], args[1], payload)
	if err != nil {
		return err
	}

	switch res.Mode {
	case "direct":
		status := "ok"
		if res.MethodStatus != nil {
			status = fmt.Sprintf("status %d", *res.MethodStatus)
		}
		fmt.Fprintf(a.out, "%s delivered to %s directly (%s)\n", res.Command, res.DeviceID, status)
	default:
		fmt.Fprintf(a.out, "%s queued for %s (message %s)\n", res.Command, res.DeviceID, res.MessageID)
	}
	return nil
}
