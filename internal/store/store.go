package store

import (
	"database/sql"
	"fmt"
	"time"

	"examforge/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_name TEXT NOT NULL,
		topic TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'in_progress',
		final_grade REAL,
		final_explanation TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		question_number INTEGER NOT NULL,
		text TEXT NOT NULL,
		context TEXT NOT NULL DEFAULT '',
		rubric TEXT NOT NULL DEFAULT '',
		student_answer TEXT,
		grade REAL,
		feedback TEXT NOT NULL DEFAULT '',
		needs_followup INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateExam creates an exam in the in_progress state.
func (s *Store) CreateExam(studentName, topic, difficulty string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO exams (student_name, topic, difficulty, status, created_at) VALUES (?, ?, ?, 'in_progress', ?)`,
		studentName, topic, difficulty, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetExam returns an exam by ID.
func (s *Store) GetExam(id int64) (model.Exam, error) {
	var e model.Exam
	err := s.db.QueryRow(
		`SELECT id, student_name, topic, difficulty, status, final_grade, final_explanation, created_at, completed_at
		 FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.StudentName, &e.Topic, &e.Difficulty, &e.Status, &e.FinalGrade, &e.FinalExplanation, &e.CreatedAt, &e.CompletedAt)
	return e, err
}

// ListExams returns all exams, newest first.
func (s *Store) ListExams() ([]model.Exam, error) {
	rows, err := s.db.Query(
		`SELECT id, student_name, topic, difficulty, status, final_grade, final_explanation, created_at, completed_at
		 FROM exams ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.StudentName, &e.Topic, &e.Difficulty, &e.Status, &e.FinalGrade, &e.FinalExplanation, &e.CreatedAt, &e.CompletedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// CompleteExam sets the final grade, explanation, and completion time.
func (s *Store) CompleteExam(id int64, finalGrade float64, explanation string) error {
	now := time.Now()
	_, err := s.db.Exec(
		`UPDATE exams SET status = 'completed', final_grade = ?, final_explanation = ?, completed_at = ? WHERE id = ?`,
		finalGrade, explanation, now, id,
	)
	return err
}

// UpdateExamStatus updates the exam status.
func (s *Store) UpdateExamStatus(id int64, status model.ExamStatus) error {
	_, err := s.db.Exec(`UPDATE exams SET status = ? WHERE id = ?`, status, id)
	return err
}

// InsertQuestion stores a generated question.
func (s *Store) InsertQuestion(q model.Question) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO questions (exam_id, question_number, text, context, rubric) VALUES (?, ?, ?, ?, ?)`,
		q.ExamID, q.QuestionNumber, q.Text, q.Context, q.Rubric,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	var q model.Question
	err := s.db.QueryRow(
		`SELECT id, exam_id, question_number, text, context, rubric, student_answer, grade, feedback, needs_followup
		 FROM questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.ExamID, &q.QuestionNumber, &q.Text, &q.Context, &q.Rubric, &q.StudentAnswer, &q.Grade, &q.Feedback, &q.NeedsFollowup)
	return q, err
}

// QuestionsForExam returns all questions for an exam in question order.
func (s *Store) QuestionsForExam(examID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, question_number, text, context, rubric, student_answer, grade, feedback, needs_followup
		 FROM questions WHERE exam_id = ? ORDER BY question_number`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionNumber, &q.Text, &q.Context, &q.Rubric, &q.StudentAnswer, &q.Grade, &q.Feedback, &q.NeedsFollowup); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// UpdateAnswer records a student's answer.
func (s *Store) UpdateAnswer(questionID int64, answer string) error {
	_, err := s.db.Exec(`UPDATE questions SET student_answer = ? WHERE id = ?`, answer, questionID)
	return err
}

// UpdateGrade records the grade, feedback, and follow-up flag for a question.
func (s *Store) UpdateGrade(questionID int64, grade float64, feedback string, needsFollowup bool) error {
	_, err := s.db.Exec(
		`UPDATE questions SET grade = ?, feedback = ?, needs_followup = ? WHERE id = ?`,
		grade, feedback, needsFollowup, questionID,
	)
	return err
}

// AddNotification records a notification event for an exam.
func (s *Store) AddNotification(examID int64, kind model.NotificationKind, message string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO notifications (exam_id, kind, message, created_at) VALUES (?, ?, ?, ?)`,
		examID, kind, message, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListNotifications returns all notifications for an exam, newest first.
func (s *Store) ListNotifications(examID int64) ([]model.Notification, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, kind, message, created_at FROM notifications WHERE exam_id = ? ORDER BY id DESC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.ExamID, &n.Kind, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// ExamCount returns the number of exams in the database.
func (s *Store) ExamCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM exams`).Scan(&count)
	return count, err
}
