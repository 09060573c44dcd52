package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/contenttype"
)

var ErrNotFound = core.NewNotFoundError("backup")

// apps never backed up
var excludedApps = map[string]bool{
	"admin":        true,
	"auth":         true,
	"contenttypes": true,
	"sessions":     true,
	"internals":    true,
}

// CommandError aborts a backup run before anything is exported.
type CommandError struct {
	msg string
}

func (e CommandError) Error() string { return e.msg }

func IsCommandError(err error) bool {
	_, ok := errors.Cause(err).(*CommandError)
	return ok
}

func commandError(msg string) error { return &CommandError{msg: msg} }

// ParseDate parses a YYYY-MM-DD command line date.
func ParseDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, errors.Errorf("Not a valid date: '%s'.", s)
	}
	return d, nil
}

type (
	Repository interface {
		CreateBackup(ctx context.Context, b Backup) (Backup, error)
		GetBackup(ctx context.Context, id int) (Backup, error)
		// QueryBackups returns the newest backups first.
		QueryBackups(ctx context.Context, filter Filter) ([]Backup, error)
		DeleteBackups(ctx context.Context, ids ...int) (int, error)
	}

	// Options of a backup run. Nil dates take their default: yesterday for Start, today for End (excluded).
	Options struct {
		Start *core.Date
		End   *core.Date
		Out   io.Writer
	}

	Report struct {
		Start    core.Date
		End      core.Date
		Files    []string
		Warnings []string
	}

	Service struct {
		repo         Repository
		contentTypes *contenttype.Service
		dataIO       contenttype.DataIO
		storage      core.FileStorage
		mailer       core.EmailService
		conf         *core.Config
	}
)

func NewService(
	repo Repository,
	contentTypes *contenttype.Service,
	dataIO contenttype.DataIO,
	storage core.FileStorage,
	mailer core.EmailService,
	conf *core.Config,
) *Service {
	return &Service{
		repo:         repo,
		contentTypes: contentTypes,
		dataIO:       dataIO,
		storage:      storage,
		mailer:       mailer,
		conf:         conf,
	}
}

func (svc *Service) Get(ctx context.Context, id int) (Backup, error) {
	return svc.repo.GetBackup(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Backup, error) {
	return svc.repo.QueryBackups(ctx, filter)
}

func (svc *Service) Delete(ctx context.Context, ids ...int) (int, error) {
	return svc.repo.DeleteBackups(ctx, ids...)
}

// Open returns the stored CSV file of a backup.
func (svc *Service) Open(ctx context.Context, id int) (Backup, io.ReadCloser, error) {
	b, err := svc.repo.GetBackup(ctx, id)
	if err != nil {
		return Backup{}, nil, err
	}
	f, err := svc.storage.Open(ctx, b.File)
	if err != nil {
		return Backup{}, nil, errors.Wrapf(err, "opening %s", b.File)
	}
	return b, f, nil
}

type target struct {
	ct        contenttype.ContentType
	model     contenttype.Model
	dateField string
}

// targets returns the persisted content types to back up, with the date field their rows are bucketed on.
func (svc *Service) targets(ctx context.Context) ([]target, error) {
	cts, err := svc.contentTypes.Query(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying content types")
	}
	sort.Slice(cts, func(i, j int) bool { return cts[i].ID < cts[j].ID })

	var targets []target
	for _, ct := range cts {
		if excludedApps[ct.AppLabel] {
			continue
		}
		m, ok := svc.contentTypes.ModelFor(ct)
		if !ok {
			continue
		}
		t := target{ct: ct, model: m, dateField: m.DateHierarchy}
		if t.dateField == "" {
			if !m.IsHistorical() {
				continue
			}
			t.dateField = "history_date"
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// Run exports, for every day in [Start, End), the rows of each eligible model created that day.
// One CSV file and one Backup row are created per (day, model), empty or not.
func (svc *Service) Run(ctx context.Context, opts Options) (Report, error) {
	out := opts.Out
	if out == nil {
		out = ioutil.Discard
	}
	loc := svc.conf.Location
	if loc == nil {
		loc = time.UTC
	}
	today := core.Today(loc)

	start, end := today.AddDays(-1), today
	if opts.Start != nil {
		start = *opts.Start
	}
	if opts.End != nil {
		end = *opts.End
	}

	report := Report{}
	if end.After(today) {
		end = today
		warn := fmt.Sprintf("enddate can't be in future. Using default value %s", end)
		report.Warnings = append(report.Warnings, warn)
		fmt.Fprintln(out, warn)
	}
	if !start.Before(end) {
		return report, commandError("enddate can't be equal or before startdate")
	}
	if start.After(today.AddDays(-1)) {
		return report, commandError("startdate can't start from today or future")
	}
	report.Start, report.End = start, end

	targets, err := svc.targets(ctx)
	if err != nil {
		return report, err
	}

	for day := start; day.Before(end); day = day.AddDays(1) {
		fmt.Fprintf(out, "Backuping %s\n", day)
		for _, t := range targets {
			fmt.Fprintf(out, "  - backuping %s\n", t.ct.Key())
			b, err := svc.backup(ctx, out, t, day)
			if err != nil {
				return report, errors.Wrapf(err, "backuping %s for %s", t.ct.Key(), day)
			}
			report.Files = append(report.Files, b.File)
		}
	}

	svc.sendReport(report)
	return report, nil
}

func (svc *Service) backup(ctx context.Context, out io.Writer, t target, day core.Date) (Backup, error) {
	loc := svc.conf.Location
	if loc == nil {
		loc = time.UTC
	}

	fmt.Fprintln(out, "    - querying database")
	ds, err := svc.dataIO.Export(ctx, t.model, contenttype.ExportFilter{
		DateField: t.dateField,
		From:      day.Start(loc),
		To:        day.AddDays(1).Start(loc),
	})
	if err != nil {
		return Backup{}, err
	}

	fmt.Fprintln(out, "    - exporting data to csv")
	var buf bytes.Buffer
	if err := ds.WriteCSV(&buf); err != nil {
		return Backup{}, errors.Wrap(err, "writing csv")
	}

	fmt.Fprintln(out, "    - creating backup")
	name, err := svc.storage.Save(ctx, FilePath(t.ct.AppLabel, t.ct.Model, day), &buf)
	if err != nil {
		return Backup{}, errors.Wrap(err, "saving file")
	}
	b, err := svc.repo.CreateBackup(ctx, Backup{ContentTypeID: t.ct.ID, File: name, Date: day})
	if err != nil {
		return Backup{}, errors.Wrap(err, "creating backup")
	}
	b.Model = t.ct.Key()
	return b, nil
}

func (svc *Service) sendReport(report Report) {
	if svc.mailer == nil || len(svc.conf.Admins) == 0 {
		return
	}
	svc.mailer.SendMessages(&core.EmailMessage{
		To:           svc.conf.Admins,
		Subject:      fmt.Sprintf("Backup report %s - %s", report.Start, report.End),
		TemplateName: "backup_report",
		TemplateData: report,
	})
}
