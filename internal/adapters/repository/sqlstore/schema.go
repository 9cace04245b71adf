package sqlstore

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS survey_templates (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  creator_name TEXT NOT NULL DEFAULT '',
  question_count INTEGER NOT NULL,
  categories_json TEXT NOT NULL,
  questions_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS submissions (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  student_id TEXT NOT NULL,
  survey_id TEXT NOT NULL,
  status TEXT NOT NULL,
  session_id TEXT NOT NULL DEFAULT '',
  course_title TEXT NOT NULL DEFAULT '',
  dominant_category TEXT NOT NULL,
  dominant_category_label TEXT NOT NULL,
  scores_json TEXT NOT NULL,
  category_labels_json TEXT NOT NULL,
  answers_json TEXT NOT NULL,
  answer_details_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS submissions_student_created
  ON submissions (student_id, created_at DESC, seq DESC);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS survey_templates (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  creator_name TEXT NOT NULL DEFAULT '',
  question_count INTEGER NOT NULL,
  categories_json TEXT NOT NULL,
  questions_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS submissions (
  seq BIGSERIAL PRIMARY KEY,
  id TEXT NOT NULL UNIQUE,
  student_id TEXT NOT NULL,
  survey_id TEXT NOT NULL,
  status TEXT NOT NULL,
  session_id TEXT NOT NULL DEFAULT '',
  course_title TEXT NOT NULL DEFAULT '',
  dominant_category TEXT NOT NULL,
  dominant_category_label TEXT NOT NULL,
  scores_json TEXT NOT NULL,
  category_labels_json TEXT NOT NULL,
  answers_json TEXT NOT NULL,
  answer_details_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS submissions_student_created
  ON submissions (student_id, created_at DESC, seq DESC);
`
