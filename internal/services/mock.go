package services

import "strings"

const mockFeatureNameLimit = 30

// MockTestCases returns canned markdown test cases for feature. It is shown when
// the model backend cannot be reached.
func MockTestCases(feature string) string {
	name := feature
	if r := []rune(name); len(r) > mockFeatureNameLimit {
		name = string(r[:mockFeatureNameLimit]) + "..."
	}
	return "# Test Cases for: " + name + "\n" + mockTestCaseBody
}

// MockQASupport picks a canned QA answer by keyword.
func MockQASupport(question string) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "aes") || strings.Contains(q, "encryption"):
		return mockAESAnswer
	case strings.Contains(q, "security") || strings.Contains(q, "auth"):
		return mockSecurityAnswer
	case strings.Contains(q, "test") || strings.Contains(q, "qa"):
		return mockTestingAnswer
	case strings.Contains(q, "api") || strings.Contains(q, "rest"):
		return mockAPIAnswer
	default:
		return mockDefaultAnswer
	}
}

const mockTestCaseBody = `
## Test Case ID: TC-001
**Test Case Title**: Verify Basic Functionality
**Objective**: Ensure the core functionality works as expected
**Preconditions**: User is logged in with valid credentials
**Test Steps**:
1. Navigate to the feature page
2. Enter valid input data
3. Submit the form
4. Verify the results
**Expected Results**: Feature performs the primary function correctly
**Priority**: High
**Test Type**: Functional

## Test Case ID: TC-002
**Test Case Title**: Validate Input Validation
**Objective**: Ensure the system properly validates user inputs
**Preconditions**: User has access to the feature
**Test Steps**:
1. Navigate to the feature page
2. Enter invalid data (e.g., special characters, extremely long text)
3. Submit the form
4. Observe system response
**Expected Results**: System should display appropriate error messages and prevent submission
**Priority**: Medium
**Test Type**: Validation

## Test Case ID: TC-003
**Test Case Title**: Test Error Handling
**Objective**: Verify the system handles errors gracefully
**Preconditions**: System is in a state where errors can occur
**Test Steps**:
1. Create conditions that would trigger an error
2. Execute the feature under these conditions
3. Observe how the system responds
**Expected Results**: System should display user-friendly error messages and recover gracefully
**Priority**: High
**Test Type**: Error Handling

## Test Case ID: TC-004
**Test Case Title**: Performance Under Load
**Objective**: Ensure the feature performs well under heavy usage
**Preconditions**: Test environment capable of simulating load
**Test Steps**:
1. Set up load testing tools
2. Simulate multiple concurrent users
3. Monitor system performance
**Expected Results**: System maintains acceptable response times and doesn't crash
**Priority**: Medium
**Test Type**: Performance

## Test Case ID: TC-005
**Test Case Title**: Mobile Responsiveness
**Objective**: Verify the feature works correctly on mobile devices
**Preconditions**: Access to mobile devices or emulators
**Test Steps**:
1. Access the feature on various mobile devices/screen sizes
2. Test all functionality
3. Check UI layout and usability
**Expected Results**: Feature is fully functional and visually correct on all tested devices
**Priority**: Medium
**Test Type**: UI/Compatibility

Note: These are mock test cases generated for demonstration purposes. In a production environment, the AI would generate more specific test cases tailored to your exact feature requirements.`

const mockAESAnswer = `# Advanced Encryption Standard (AES)

## Overview
AES is a symmetric encryption algorithm widely used for securing sensitive data. It was established by the U.S. National Institute of Standards and Technology (NIST) in 2001.

## Key Characteristics
- Block cipher algorithm
- Supports key sizes: 128, 192, and 256 bits
- Fixed block size: 128 bits
- Performs multiple rounds of substitution and permutation

## Implementation Modes
- ECB (Electronic Codebook)
- CBC (Cipher Block Chaining)
- CFB (Cipher Feedback)
- OFB (Output Feedback)
- CTR (Counter)

## Best Practices
1. Use strong key generation
2. Implement proper key management
3. Choose appropriate mode of operation
4. Use secure padding schemes
5. Consider authenticated encryption (AES-GCM)

## Common Applications
- File encryption
- Database encryption
- Network security protocols
- Secure communications`

const mockSecurityAnswer = `# Software Security Fundamentals

## Key Concepts
1. Authentication
2. Authorization
3. Encryption
4. Access Control
5. Input Validation

## Common Security Measures
- SSL/TLS Implementation
- Password Hashing
- JWT Authentication
- CORS Policies
- XSS Prevention
- SQL Injection Protection

## Best Practices
1. Defense in Depth
2. Principle of Least Privilege
3. Regular Security Audits
4. Secure Code Reviews
5. Security Testing`

const mockTestingAnswer = `# Software Testing Guide

## Testing Types
1. Unit Testing
2. Integration Testing
3. System Testing
4. Performance Testing
5. Security Testing

## Best Practices
1. Test Early and Often
2. Maintain Test Independence
3. Follow Arrange-Act-Assert
4. Use Test Automation
5. Implement CI/CD

## Tools and Frameworks
- JUnit, TestNG
- Selenium, Cypress
- JMeter, LoadRunner
- SonarQube
- Test Management Tools`

const mockAPIAnswer = `# API Design and Development

## REST Principles
1. Stateless Communication
2. Resource-Based URLs
3. HTTP Methods Usage
4. Status Codes
5. HATEOAS

## Best Practices
1. Version Your APIs
2. Use Proper Authentication
3. Implement Rate Limiting
4. Document Thoroughly
5. Handle Errors Gracefully

## Security Considerations
- API Authentication
- Input Validation
- Rate Limiting
- HTTPS Usage
- Error Handling`

const mockDefaultAnswer = `# Software Development Concepts

## Key Areas
1. Architecture Patterns
2. Design Principles
3. Testing Methodologies
4. Security Practices
5. Performance Optimization

## Best Practices
1. Write Clean Code
2. Document Properly
3. Test Thoroughly
4. Handle Errors Gracefully
5. Follow Security Guidelines

## Tools and Technologies
- Version Control Systems
- CI/CD Pipelines
- Testing Frameworks
- Monitoring Tools
- Development IDEs`
