package calendar

// calendarJSON is normally a generated holiday-data constant; the vendored
// copy this package was recovered from did not include the generated file.
// The parent module only consumes calendar.NY, which does not read this data.
const calendarJSON = `{}`
