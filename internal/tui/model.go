package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"hydroponics/internal/application"
	"hydroponics/internal/domain"
	"hydroponics/internal/infra/records"
)

type mode int

const (
	modeBrowse mode = iota
	modeAddress
	modeForm
	modePath
	modeConfirm
)

const (
	fieldName = iota
	fieldDate
	fieldFertilizer
	fieldOn
	fieldOff
	fieldCount
)

type pathAction int

const (
	pathExport pathAction = iota
	pathImport
)

// StateMsg carries a fresh DeviceState from the poller.
type StateMsg struct {
	State domain.DeviceState
}

// NoticeMsg is a one-off line from the poller, e.g. a reachability change.
type NoticeMsg struct {
	Text string
}

type resultMsg struct {
	text string
	err  error
}

type importedMsg struct {
	path string
	recs []domain.PlantRecord
	err  error
}

type confirmation struct {
	prompt string
	onYes  func(m *Model) tea.Cmd
	onNo   string
}

type Options struct {
	Session *application.Session
	Store   *records.Store
	CSVPath string
	Now     func() time.Time
}

// Model is the control panel. Update is the only place that mutates the
// record store or the view state; device calls run as commands.
type Model struct {
	ctx     context.Context
	session *application.Session
	store   *records.Store
	csvPath string
	now     func() time.Time
	styles  styles

	state    domain.DeviceState
	label    string
	selected int

	mode       mode
	address    textinput.Model
	fields     []textinput.Model
	focus      int
	path       textinput.Model
	pathAction pathAction
	confirm    *confirmation

	status    string
	statusErr bool
	quitting  bool
}

func New(ctx context.Context, opts Options) *Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	fields := make([]textinput.Model, fieldCount)
	fields[fieldName] = newInput("Plant name")
	fields[fieldDate] = newInput(domain.InsertDateLayout)
	fields[fieldFertilizer] = newInput("Fertilizer (optional)")
	fields[fieldOn] = newInput("ON minutes")
	fields[fieldOff] = newInput("OFF minutes")
	fields[fieldDate].SetValue(domain.Today(now()))

	m := &Model{
		ctx:     ctx,
		session: opts.Session,
		store:   opts.Store,
		csvPath: opts.CSVPath,
		now:     now,
		styles:  newStyles(),
		state:   opts.Session.State(),
		label:   opts.Session.Label(),
		address: newInput("192.168.1.50"),
		fields:  fields,
		path:    newInput("plants.csv"),
	}

	if !opts.Session.Configured() {
		m.mode = modeAddress
		m.address.Focus()
	}

	return m
}

func (m *Model) Init() tea.Cmd {
	if m.mode == modeAddress {
		return textinput.Blink
	}
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		m.state = msg.State
		m.label = m.session.Label()
		return m, nil
	case NoticeMsg:
		m.setStatus(msg.Text, false)
		return m, nil
	case resultMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(msg.text, false)
		}
		return m, nil
	case importedMsg:
		return m.handleImported(msg)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		switch m.mode {
		case modeAddress:
			return m.updateAddress(msg)
		case modeForm:
			return m.updateForm(msg)
		case modePath:
			return m.updatePath(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateBrowse(msg)
		}
	}

	return m, nil
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) setError(err error) {
	m.setStatus(ErrorMessage(err), true)
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m.quit()
	case "i":
		m.mode = modeAddress
		m.address.SetValue(m.session.Address())
		m.address.CursorEnd()
		return m, m.address.Focus()
	case "tab", "f":
		m.mode = modeForm
		return m, m.fields[m.focus].Focus()
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < m.store.Len()-1 {
			m.selected++
		}
	case "p":
		return m, m.pumpCmd(domain.PumpOn)
	case "o":
		return m, m.pumpCmd(domain.PumpOff)
	case "c":
		return m.setCycleFromFields()
	case "a":
		return m.addRecord()
	case "enter", "l":
		return m.loadSelected()
	case "d", "x":
		return m.askRemove()
	case "e":
		return m.openPath(pathExport)
	case "m":
		return m.openPath(pathImport)
	}
	return m, nil
}

func (m *Model) updateAddress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if err := m.session.Configure(m.address.Value()); err != nil {
			m.setError(err)
			return m, nil
		}
		m.address.Blur()
		m.mode = modeBrowse
		m.state = m.session.State()
		m.label = m.session.Label()
		m.setStatus("Device IP set to "+m.session.Address(), false)
		return m, nil
	case "esc":
		m.address.Blur()
		m.mode = modeBrowse
		if !m.session.Configured() {
			m.setStatus("Without an IP, communication with the device is not possible. Press i to set it.", true)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.address, cmd = m.address.Update(msg)
	return m, cmd
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.fields[m.focus].Blur()
		m.mode = modeBrowse
		return m, nil
	case "tab", "down":
		return m, m.focusField((m.focus + 1) % fieldCount)
	case "shift+tab", "up":
		return m, m.focusField((m.focus + fieldCount - 1) % fieldCount)
	case "enter":
		m.fields[m.focus].Blur()
		m.focus = fieldName
		m.mode = modeBrowse
		return m.addRecord()
	}

	var cmd tea.Cmd
	m.fields[m.focus], cmd = m.fields[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) focusField(i int) tea.Cmd {
	m.fields[m.focus].Blur()
	m.focus = i
	return m.fields[m.focus].Focus()
}

func (m *Model) updatePath(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.path.Blur()
		m.mode = modeBrowse
		return m, nil
	case "enter":
		path := strings.TrimSpace(m.path.Value())
		m.path.Blur()
		m.mode = modeBrowse
		if path == "" {
			m.setStatus("No file selected.", true)
			return m, nil
		}
		if m.pathAction == pathExport {
			return m, m.exportCmd(path)
		}
		return m, importCmd(path)
	}

	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.confirm
	switch msg.String() {
	case "y", "Y":
		m.confirm = nil
		m.mode = modeBrowse
		return m, c.onYes(m)
	case "n", "N", "esc":
		m.confirm = nil
		m.mode = modeBrowse
		if c.onNo != "" {
			m.setStatus(c.onNo, false)
		}
	}
	return m, nil
}

func (m *Model) ask(prompt, onNo string, onYes func(m *Model) tea.Cmd) (tea.Model, tea.Cmd) {
	m.confirm = &confirmation{prompt: prompt, onYes: onYes, onNo: onNo}
	m.mode = modeConfirm
	return m, nil
}

func (m *Model) pumpCmd(action domain.PumpAction) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		if err := session.SetPump(ctx, action); err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{text: "Pump " + strings.ToUpper(string(action))}
	}
}

func (m *Model) setCycleFromFields() (tea.Model, tea.Cmd) {
	on, errOn := parseMinutes(m.fields[fieldOn].Value())
	off, errOff := parseMinutes(m.fields[fieldOff].Value())
	if errOn != nil || errOff != nil {
		m.setStatus("Enter valid numbers for cycle minutes.", true)
		return m, nil
	}

	ctx, session := m.ctx, m.session
	return m, func() tea.Msg {
		ack, err := session.SetCycle(ctx, on, off)
		if err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{text: ack}
	}
}

func (m *Model) addRecord() (tea.Model, tea.Cmd) {
	on, errOn := parseMinutes(m.fields[fieldOn].Value())
	off, errOff := parseMinutes(m.fields[fieldOff].Value())
	if errOn != nil {
		m.setError(errOn)
		return m, nil
	}
	if errOff != nil {
		m.setError(errOff)
		return m, nil
	}

	rec := domain.PlantRecord{
		PlantName:   strings.TrimSpace(m.fields[fieldName].Value()),
		InsertDate:  strings.TrimSpace(m.fields[fieldDate].Value()),
		Fertilizer:  strings.TrimSpace(m.fields[fieldFertilizer].Value()),
		CycleOnMin:  on,
		CycleOffMin: off,
	}
	if err := m.store.Add(rec); err != nil {
		m.setError(err)
		return m, nil
	}

	m.fields[fieldName].Reset()
	m.fields[fieldFertilizer].Reset()
	m.selected = m.store.Len() - 1
	m.setStatus("Record for "+rec.PlantName+" added.", false)
	return m, nil
}

// loadSelected copies the selected record into the form and offers to
// send its cycle to the device.
func (m *Model) loadSelected() (tea.Model, tea.Cmd) {
	rec, ok := m.store.Get(m.selected)
	if !ok {
		m.setStatus("Select a record first.", true)
		return m, nil
	}

	m.fields[fieldName].SetValue(rec.PlantName)
	m.fields[fieldDate].SetValue(rec.InsertDate)
	m.fields[fieldFertilizer].SetValue(rec.Fertilizer)
	m.fields[fieldOn].SetValue(fmt.Sprint(rec.CycleOnMin))
	m.fields[fieldOff].SetValue(fmt.Sprint(rec.CycleOffMin))

	if rec.Cycle() != domain.CycleComplete {
		res, err := application.ApplyRecordCycle(m.ctx, m.session, rec, nil)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		if res.Action == application.ApplySkipped {
			m.setStatus("Loaded "+rec.PlantName+".", false)
		}
		return m, nil
	}

	prompt := fmt.Sprintf("Apply cycle %d min ON / %d min OFF for %s to the device? (y/n)",
		rec.CycleOnMin, rec.CycleOffMin, rec.PlantName)
	return m.ask(prompt, "Loaded "+rec.PlantName+"; cycle not sent.", func(m *Model) tea.Cmd {
		ctx, session := m.ctx, m.session
		return func() tea.Msg {
			res, err := application.ApplyRecordCycle(ctx, session, rec, func(domain.PlantRecord) bool { return true })
			if err != nil {
				return resultMsg{err: err}
			}
			return resultMsg{text: res.Ack}
		}
	})
}

func (m *Model) askRemove() (tea.Model, tea.Cmd) {
	rec, ok := m.store.Get(m.selected)
	if !ok {
		m.setStatus("Select a record to remove.", true)
		return m, nil
	}

	index := m.selected
	prompt := fmt.Sprintf("Remove %s (%s)? (y/n)", rec.PlantName, rec.InsertDate)
	return m.ask(prompt, "", func(m *Model) tea.Cmd {
		if err := m.store.Remove(index); err != nil {
			m.setError(err)
			return nil
		}
		m.clampSelection()
		m.setStatus("Record removed.", false)
		return nil
	})
}

func (m *Model) clampSelection() {
	if n := m.store.Len(); m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *Model) openPath(action pathAction) (tea.Model, tea.Cmd) {
	if action == pathExport && m.store.Len() == 0 {
		m.setStatus("The local database is empty. Nothing to export.", true)
		return m, nil
	}
	m.pathAction = action
	m.path.SetValue(m.csvPath)
	m.path.CursorEnd()
	m.mode = modePath
	return m, m.path.Focus()
}

func (m *Model) exportCmd(path string) tea.Cmd {
	recs := m.store.List()
	return func() tea.Msg {
		if err := records.ExportCSV(path, recs); err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{text: fmt.Sprintf("Exported %d records to %s.", len(recs), path)}
	}
}

func importCmd(path string) tea.Cmd {
	return func() tea.Msg {
		recs, err := records.ImportCSV(path)
		return importedMsg{path: path, recs: recs, err: err}
	}
}

func (m *Model) handleImported(msg importedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setError(msg.err)
		return m, nil
	}
	if m.mode != modeBrowse {
		m.setStatus("Import from "+msg.path+" discarded: finish the open prompt and import again.", true)
		return m, nil
	}

	recs := msg.recs
	prompt := fmt.Sprintf("Replace the %d current records with %d from %s? (y/n)", m.store.Len(), len(recs), msg.path)
	return m.ask(prompt, "Import cancelled.", func(m *Model) tea.Cmd {
		m.store.ReplaceAll(recs)
		m.selected = 0
		m.setStatus(fmt.Sprintf("Imported %d records from %s.", len(recs), msg.path), false)
		return nil
	})
}

// Status is the last feedback line shown to the user.
func (m *Model) Status() string {
	return m.status
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	s := m.styles
	var b strings.Builder

	b.WriteString(s.title.Render("Hydroponics Control Panel · "+m.label) + "\n\n")

	b.WriteString(s.section.Render("Sensor Data") + "\n")
	b.WriteString(m.row("Water level", Reading(m.state, m.state.WaterLevel)+" "+Droplets(m.state, m.state.WaterLevel)))
	b.WriteString(m.row("Soil moisture", Reading(m.state, m.state.SoilMoisture)+" "+Droplets(m.state, m.state.SoilMoisture)))
	b.WriteString(m.row("Pump", PumpLabel(m.state)))
	b.WriteString(m.row("Cycle", CycleLabel(m.state)))
	b.WriteString("\n")

	if m.mode == modeAddress {
		b.WriteString(s.section.Render("Device IP") + "\n")
		b.WriteString(m.address.View() + "\n\n")
	}

	b.WriteString(s.section.Render("Plant Record") + "\n")
	for _, f := range m.fields {
		b.WriteString(f.View() + "\n")
	}
	b.WriteString("\n")

	b.WriteString(s.section.Render("Records") + "\n")
	recs := m.store.List()
	if len(recs) == 0 {
		b.WriteString(s.help.Render("No records yet.") + "\n")
	}
	for i, r := range recs {
		line := RecordLine(i, r)
		if i == m.selected {
			b.WriteString(s.selected.Render("> "+line) + "\n")
			continue
		}
		b.WriteString(s.value.Render("  "+line) + "\n")
	}
	b.WriteString("\n")

	switch m.mode {
	case modePath:
		verb := "Export to"
		if m.pathAction == pathImport {
			verb = "Import from"
		}
		b.WriteString(s.hint.Render(verb) + " " + m.path.View() + "\n")
	case modeConfirm:
		b.WriteString(s.hint.Render(m.confirm.prompt) + "\n")
	}

	if m.status != "" {
		style := s.success
		if m.statusErr {
			style = s.error
		}
		b.WriteString(style.Render(m.status) + "\n")
	}

	b.WriteString(s.help.Render(m.helpLine()))

	return s.app.Render(b.String())
}

func (m *Model) row(label, value string) string {
	return fmt.Sprintf("%s %s\n", m.styles.label.Render(fmt.Sprintf("%-14s", label+":")), m.styles.value.Render(value))
}

func (m *Model) helpLine() string {
	switch m.mode {
	case modeAddress:
		return "enter: save IP • esc: cancel"
	case modeForm:
		return "tab/shift+tab: next/prev field • enter: add record • esc: done"
	case modePath:
		return "enter: confirm • esc: cancel"
	case modeConfirm:
		return "y: yes • n: no"
	}
	return "i: IP • p/o: pump on/off • c: set cycle • tab: edit • a: add • enter: load • d: remove • e/m: export/import • q: quit"
}
