package mail

const emailFields = `
      id
      sender
      recipient
      subject
      body
      folder
      createdAt
      scan {
        result
        confidence
      }`

const myEmailsQuery = `query MyEmails($folder: String, $limit: Int, $offset: Int) {
  myEmails(folder: $folder, limit: $limit, offset: $offset) {` + emailFields + `
  }
}`

const myScanLogsQuery = `query MyScanLogs($limit: Int, $offset: Int) {
  myScanLogs(limit: $limit, offset: $offset) {
    id
    result
    confidence
    createdAt
    email {
      id
      subject
      sender
      recipient
      body
      createdAt
    }
  }
}`

const sendEmailMutation = `mutation SendEmail($to: String!, $subject: String!, $body: String!) {
  sendEmail(to: $to, subject: $subject, body: $body) {
    email {` + emailFields + `
    }
  }
}`
