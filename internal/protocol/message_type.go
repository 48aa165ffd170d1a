package protocol

import (
	"errors"
	"fmt"
)

// MessageType is the discriminator shared by client and server.
// Values are part of the wire contract and must never be renamed.
type MessageType string

var ErrUnknownType = errors.New("unknown message type")

// control types
const (
	TypePing   MessageType = "PING"
	TypePong   MessageType = "PONG"
	TypeNotice MessageType = "NOTICE" // server initiated broadcast
	TypeError  MessageType = "ERROR"  // request could not be routed by the peer
)

// student administration
const (
	TypeAddStudent        MessageType = "ADD_STUDENT"
	TypeAddStudentSuccess MessageType = "ADD_STUDENT_SUCCESS"
	TypeAddStudentFail    MessageType = "ADD_STUDENT_FAIL"

	TypeUpdateStudent        MessageType = "UPDATE_STUDENT"
	TypeUpdateStudentSuccess MessageType = "UPDATE_STUDENT_SUCCESS"
	TypeUpdateStudentFail    MessageType = "UPDATE_STUDENT_FAIL"

	TypeDeleteStudent        MessageType = "DELETE_STUDENT"
	TypeDeleteStudentSuccess MessageType = "DELETE_STUDENT_SUCCESS"
	TypeDeleteStudentFail    MessageType = "DELETE_STUDENT_FAIL"

	TypeGetStudent        MessageType = "GET_STUDENT"
	TypeGetStudentSuccess MessageType = "GET_STUDENT_SUCCESS"
	TypeGetStudentFail    MessageType = "GET_STUDENT_FAIL"

	TypeListStudents        MessageType = "LIST_STUDENTS"
	TypeListStudentsSuccess MessageType = "LIST_STUDENTS_SUCCESS"
	TypeListStudentsFail    MessageType = "LIST_STUDENTS_FAIL"
)

// teacher administration
const (
	TypeAddTeacher        MessageType = "ADD_TEACHER"
	TypeAddTeacherSuccess MessageType = "ADD_TEACHER_SUCCESS"
	TypeAddTeacherFail    MessageType = "ADD_TEACHER_FAIL"

	TypeDeleteTeacher        MessageType = "DELETE_TEACHER"
	TypeDeleteTeacherSuccess MessageType = "DELETE_TEACHER_SUCCESS"
	TypeDeleteTeacherFail    MessageType = "DELETE_TEACHER_FAIL"

	TypeListTeachers        MessageType = "LIST_TEACHERS"
	TypeListTeachersSuccess MessageType = "LIST_TEACHERS_SUCCESS"
	TypeListTeachersFail    MessageType = "LIST_TEACHERS_FAIL"
)

// accounts
const (
	TypeResetPassword        MessageType = "RESET_PASSWORD"
	TypeResetPasswordSuccess MessageType = "RESET_PASSWORD_SUCCESS"
	TypeResetPasswordFail    MessageType = "RESET_PASSWORD_FAIL"
)

// documents
const (
	TypeSearchDocuments        MessageType = "SEARCH_DOCUMENTS"
	TypeSearchDocumentsSuccess MessageType = "SEARCH_DOCUMENTS_SUCCESS"
	TypeSearchDocumentsFail    MessageType = "SEARCH_DOCUMENTS_FAIL"

	TypeUploadDocument        MessageType = "UPLOAD_DOCUMENT"
	TypeUploadDocumentSuccess MessageType = "UPLOAD_DOCUMENT_SUCCESS"
	TypeUploadDocumentFail    MessageType = "UPLOAD_DOCUMENT_FAIL"
)

// library
const (
	TypeSearchBooks        MessageType = "SEARCH_BOOKS"
	TypeSearchBooksSuccess MessageType = "SEARCH_BOOKS_SUCCESS"
	TypeSearchBooksFail    MessageType = "SEARCH_BOOKS_FAIL"

	TypeBorrowBook        MessageType = "BORROW_BOOK"
	TypeBorrowBookSuccess MessageType = "BORROW_BOOK_SUCCESS"
	TypeBorrowBookFail    MessageType = "BORROW_BOOK_FAIL"

	TypeReturnBook        MessageType = "RETURN_BOOK"
	TypeReturnBookSuccess MessageType = "RETURN_BOOK_SUCCESS"
	TypeReturnBookFail    MessageType = "RETURN_BOOK_FAIL"
)

// store
const (
	TypeListProducts        MessageType = "LIST_PRODUCTS"
	TypeListProductsSuccess MessageType = "LIST_PRODUCTS_SUCCESS"
	TypeListProductsFail    MessageType = "LIST_PRODUCTS_FAIL"

	TypePurchaseProduct        MessageType = "PURCHASE_PRODUCT"
	TypePurchaseProductSuccess MessageType = "PURCHASE_PRODUCT_SUCCESS"
	TypePurchaseProductFail    MessageType = "PURCHASE_PRODUCT_FAIL"
)

// courses
const (
	TypeListCourses        MessageType = "LIST_COURSES"
	TypeListCoursesSuccess MessageType = "LIST_COURSES_SUCCESS"
	TypeListCoursesFail    MessageType = "LIST_COURSES_FAIL"

	TypeSelectCourse        MessageType = "SELECT_COURSE"
	TypeSelectCourseSuccess MessageType = "SELECT_COURSE_SUCCESS"
	TypeSelectCourseFail    MessageType = "SELECT_COURSE_FAIL"

	TypeDropCourse        MessageType = "DROP_COURSE"
	TypeDropCourseSuccess MessageType = "DROP_COURSE_SUCCESS"
	TypeDropCourseFail    MessageType = "DROP_COURSE_FAIL"
)

// Operation groups a request type with its success and failure replies.
type Operation struct {
	Name    string
	Request MessageType
	Success MessageType
	Failure MessageType
}

var operations = []Operation{
	{"ping", TypePing, TypePong, TypeError},

	{"add_student", TypeAddStudent, TypeAddStudentSuccess, TypeAddStudentFail},
	{"update_student", TypeUpdateStudent, TypeUpdateStudentSuccess, TypeUpdateStudentFail},
	{"delete_student", TypeDeleteStudent, TypeDeleteStudentSuccess, TypeDeleteStudentFail},
	{"get_student", TypeGetStudent, TypeGetStudentSuccess, TypeGetStudentFail},
	{"list_students", TypeListStudents, TypeListStudentsSuccess, TypeListStudentsFail},

	{"add_teacher", TypeAddTeacher, TypeAddTeacherSuccess, TypeAddTeacherFail},
	{"delete_teacher", TypeDeleteTeacher, TypeDeleteTeacherSuccess, TypeDeleteTeacherFail},
	{"list_teachers", TypeListTeachers, TypeListTeachersSuccess, TypeListTeachersFail},

	{"reset_password", TypeResetPassword, TypeResetPasswordSuccess, TypeResetPasswordFail},

	{"search_documents", TypeSearchDocuments, TypeSearchDocumentsSuccess, TypeSearchDocumentsFail},
	{"upload_document", TypeUploadDocument, TypeUploadDocumentSuccess, TypeUploadDocumentFail},

	{"search_books", TypeSearchBooks, TypeSearchBooksSuccess, TypeSearchBooksFail},
	{"borrow_book", TypeBorrowBook, TypeBorrowBookSuccess, TypeBorrowBookFail},
	{"return_book", TypeReturnBook, TypeReturnBookSuccess, TypeReturnBookFail},

	{"list_products", TypeListProducts, TypeListProductsSuccess, TypeListProductsFail},
	{"purchase_product", TypePurchaseProduct, TypePurchaseProductSuccess, TypePurchaseProductFail},

	{"list_courses", TypeListCourses, TypeListCoursesSuccess, TypeListCoursesFail},
	{"select_course", TypeSelectCourse, TypeSelectCourseSuccess, TypeSelectCourseFail},
	{"drop_course", TypeDropCourse, TypeDropCourseSuccess, TypeDropCourseFail},
}

var (
	byRequest = make(map[MessageType]Operation)
	byAny     = make(map[MessageType]Operation)
	known     = map[MessageType]struct{}{TypeNotice: {}, TypeError: {}}
)

func init() {
	for _, op := range operations {
		byRequest[op.Request] = op
		known[op.Request] = struct{}{}
		known[op.Success] = struct{}{}
		known[op.Failure] = struct{}{}
		byAny[op.Request] = op
		byAny[op.Success] = op
		// ERROR is shared by every operation, it never identifies one
		if op.Failure != TypeError {
			byAny[op.Failure] = op
		}
	}
}

// Operations returns a copy of the compiled-in operation table.
func Operations() []Operation {
	out := make([]Operation, len(operations))
	copy(out, operations)
	return out
}

// LookupOperation finds the operation whose request type is t.
func LookupOperation(t MessageType) (Operation, bool) {
	op, ok := byRequest[t]
	return op, ok
}

// OperationFor finds the operation t belongs to, whether t is the request or one of its replies.
func OperationFor(t MessageType) (Operation, bool) {
	op, ok := byAny[t]
	return op, ok
}

func IsKnown(t MessageType) bool {
	_, ok := known[t]
	return ok
}

func IsRequest(t MessageType) bool {
	_, ok := byRequest[t]
	return ok
}

func IsResponse(t MessageType) bool {
	return IsKnown(t) && !IsRequest(t) && t != TypeNotice
}

// Validate reports ErrUnknownType for values outside the registry.
func (t MessageType) Validate() error {
	if t == "" {
		return fmt.Errorf("%w: empty", ErrUnknownType)
	}
	if !IsKnown(t) {
		return fmt.Errorf("%w: %s", ErrUnknownType, string(t))
	}
	return nil
}

func (t MessageType) String() string { return string(t) }
